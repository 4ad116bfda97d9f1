package handler

const (
	errInternalServer            = "Internal server error"
	errInvalidCredentials        = "Invalid email or password"
	errRegistrationDisabled      = "Registration is disabled"
	errInvalidRegistrationSecret = "Invalid registration secret"
	errEmailTaken                = "Email is already registered"
	errPostNotFound              = "Post not found"
	errSlugTaken                 = "A post with this slug already exists"
	errInvalidStatus             = "Status must be draft or published"
	errBlankTitle                = "Title must not be blank"
	errStorageNotConfigured      = "File uploads are not configured"
	errMissingSlug               = "slug is required"
)
