// Command blogctl talks to the blog RPC API: public reads, login and the
// admin operations behind the session guard.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/blog-cms/internal/client"
	"github.com/ErlanBelekov/blog-cms/internal/client/guard"
	"github.com/ErlanBelekov/blog-cms/internal/domain"
)

const defaultServer = "http://localhost:8080"

type app struct {
	server    string
	tokenPath string
	timeout   time.Duration
	out       io.Writer

	api    *client.Client
	tokens *client.FileTokenStore
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:          "blogctl",
		Short:        "Command line client for the blog API",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.api = client.New(a.server)
			a.tokens = client.NewFileTokenStore(a.tokenPath)
		},
	}
	root.SetOut(out)

	server := os.Getenv("BLOG_SERVER")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&a.server, "server", server, "API base URL (env BLOG_SERVER)")
	root.PersistentFlags().StringVar(&a.tokenPath, "token-file", client.DefaultTokenPath(), "where the session token is stored")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Second, "overall request timeout")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.statusCmd(),
		a.postsCmd(),
		a.postCmd(),
		a.categoriesCmd(),
		a.adminPostsCmd(),
		a.createCmd(),
		a.updateCmd(),
		a.statusChangeCmd("publish", domain.PostStatusPublished),
		a.statusChangeCmd("unpublish", domain.PostStatusDraft),
		a.uploadURLCmd(),
	)
	return root
}

func (a *app) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

// session runs the guard and returns the verified token for admin calls.
// The token file doubles as the verification cache, so consecutive commands
// within the window skip the remote check.
func (a *app) session(ctx context.Context) (string, error) {
	g := guard.New(a.api, a.tokens,
		guard.WithCache(a.tokens),
		guard.WithRedirect(func() {
			fmt.Fprintln(os.Stderr, "session expired or missing: run `blogctl login`")
		}),
	)
	defer g.Close()
	return g.Require(ctx)
}

// admin runs call with a verified token. A 401 from the server means the
// session was revoked after verification: the stored token is dropped.
func (a *app) admin(ctx context.Context, call func(token string) error) error {
	token, err := a.session(ctx)
	if err != nil {
		return err
	}
	if err := call(token); err != nil {
		if client.IsUnauthorized(err) {
			return errors.Join(err, a.tokens.Clear())
		}
		return err
	}
	return nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			resp, err := a.api.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := a.tokens.Save(resp.Token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(a.out, "logged in as %s\n", resp.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var email, password, secret string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			user, err := a.api.Register(ctx, email, password, secret)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "registered %s (id %d)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("BLOG_REGISTRATION_SECRET"), "registration secret (env BLOG_REGISTRATION_SECRET)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(*cobra.Command, []string) error {
			return a.tokens.Clear()
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Verify the stored session against the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			g := guard.New(a.api, a.tokens)
			defer g.Close()

			state, err := g.Check(ctx)
			if err != nil {
				return err
			}
			if user, ok := g.User(); ok {
				fmt.Fprintf(a.out, "%s as %s\n", state, user.Email)
				return nil
			}
			fmt.Fprintln(a.out, state)
			return nil
		},
	}
}

func (a *app) postsCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List published posts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			posts, err := a.api.Posts(ctx, category)
			if err != nil {
				return err
			}
			return a.print(posts)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "category name or slug; empty or \"all\" lists everything")
	return cmd
}

func (a *app) postCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post <slug>",
		Short: "Show one published post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			p, err := a.api.PostBySlug(ctx, args[0])
			if err != nil {
				return err
			}
			return a.print(p)
		},
	}
}

func (a *app) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			cats, err := a.api.ListCategories(ctx)
			if err != nil {
				return err
			}
			return a.print(cats)
		},
	}
}

func (a *app) adminPostsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "admin-posts",
		Short: "List every post, drafts included",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			return a.admin(ctx, func(token string) error {
				posts, err := a.api.ListAdminPosts(ctx, token)
				if err != nil {
					return err
				}
				return a.print(posts)
			})
		},
	}
}

func (a *app) createCmd() *cobra.Command {
	var (
		req         client.CreatePostRequest
		contentFile string
		cover       string
		status      string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			if contentFile != "" {
				body, err := readContent(contentFile)
				if err != nil {
					return err
				}
				req.Content = body
			}
			if cover != "" {
				req.Cover = &cover
			}
			req.Status = domain.PostStatus(status)

			return a.admin(ctx, func(token string) error {
				p, err := a.api.CreatePost(ctx, token, req)
				if err != nil {
					return err
				}
				return a.print(p)
			})
		},
	}
	cmd.Flags().StringVarP(&req.Title, "title", "t", "", "post title")
	cmd.Flags().StringVarP(&contentFile, "content", "f", "", "file with the HTML body, - for stdin")
	cmd.Flags().StringVar(&cover, "cover", "", "cover image URL; derived from the first image when empty")
	cmd.Flags().StringVarP(&req.Category, "category", "c", "", "category name")
	cmd.Flags().StringSliceVar(&req.Tags, "tag", nil, "tag name, repeatable")
	cmd.Flags().StringVar(&status, "status", string(domain.PostStatusDraft), "draft or published")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var id int64
	var title, contentFile, cover, category string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update fields of a post",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			req := client.UpdatePostRequest{ID: id}
			flags := cmd.Flags()
			if flags.Changed("title") {
				req.Title = &title
			}
			if flags.Changed("content") {
				body, err := readContent(contentFile)
				if err != nil {
					return err
				}
				req.Content = &body
			}
			if flags.Changed("cover") {
				req.Cover = &cover
			}
			if flags.Changed("category") {
				req.Category = &category
			}

			return a.admin(ctx, func(token string) error {
				p, err := a.api.UpdatePost(ctx, token, req)
				if err != nil {
					return err
				}
				return a.print(p)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "post id")
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&contentFile, "content", "f", "", "file with the new HTML body, - for stdin")
	cmd.Flags().StringVar(&cover, "cover", "", "new cover image URL")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category name")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func (a *app) statusChangeCmd(name string, status domain.PostStatus) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>",
		Short: fmt.Sprintf("Set a post's status to %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if _, err := fmt.Sscan(args[0], &id); err != nil || id <= 0 {
				return fmt.Errorf("invalid post id %q", args[0])
			}

			ctx, cancel := a.ctx(cmd)
			defer cancel()

			return a.admin(ctx, func(token string) error {
				p, err := a.api.UpdatePostStatus(ctx, token, id, status)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "post %d is now %s\n", p.ID, p.Status)
				return nil
			})
		},
	}
}

func (a *app) uploadURLCmd() *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "upload-url <filename>",
		Short: "Request a presigned URL for uploading an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			return a.admin(ctx, func(token string) error {
				u, err := a.api.UploadURL(ctx, token, args[0], contentType)
				if err != nil {
					return err
				}
				return a.print(u)
			})
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "image/png", "MIME type of the file")
	return cmd
}

func readContent(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return string(b), nil
}
