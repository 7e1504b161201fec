package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/chirpnet/chirp/internal/api"
	"github.com/chirpnet/chirp/internal/cache"
	"github.com/chirpnet/chirp/internal/notify"
	"github.com/chirpnet/chirp/internal/setup"
	"github.com/urfave/cli/v3"
)

var errMissingArgument = errors.New("missing required argument")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "chirp",
		Usage: "Command-line client for the Chirp social network",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with username or email",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Username or email", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						user, err := app.Mutations.Login(ctx, c.String("user"), c.String("password"))
						if err != nil {
							return err
						}
						fmt.Printf("Signed in as @%s\n", user.Username)
						return nil
					})
				},
			},
			{
				Name:  "signup",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Usage: "Desired username", Required: true},
					&cli.StringFlag{Name: "email", Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "password", Usage: "Account password", Required: true},
					&cli.StringFlag{Name: "fullname", Usage: "Display name"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						user, err := app.Mutations.Signup(ctx, api.SignupParams{
							Username: c.String("username"),
							Email:    c.String("email"),
							Password: c.String("password"),
							FullName: c.String("fullname"),
						})
						if err != nil {
							return err
						}
						fmt.Printf("Account created for @%s\n", user.Username)
						return nil
					})
				},
			},
			{
				Name:  "google",
				Usage: "Sign in with a federated Google identity",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Google account email", Required: true},
					&cli.StringFlag{Name: "firebase-id", Usage: "Federated identity id", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Display name"},
					&cli.StringFlag{Name: "profile-img", Usage: "Profile image URL"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						user, err := app.Mutations.GoogleLogin(ctx, api.GoogleParams{
							Name:       c.String("name"),
							Email:      c.String("email"),
							ProfileImg: c.String("profile-img"),
							FirebaseID: c.String("firebase-id"),
						})
						if err != nil {
							return err
						}
						fmt.Printf("Signed in as @%s\n", user.Username)
						return nil
					})
				},
			},
			{
				Name:  "logout",
				Usage: "Close the current session",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						return app.Mutations.Logout(ctx)
					})
				},
			},
			{
				Name:  "me",
				Usage: "Show the signed-in user",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						user, err := app.Mutations.CheckAuth(ctx)
						if err != nil {
							return err
						}
						if user == nil {
							fmt.Println("Not signed in")
							return nil
						}
						printUser(user)
						return nil
					})
				},
			},
			{
				Name:      "feed",
				Usage:     "Show a post feed (for_you, following, user, likes, bookmarks)",
				ArgsUsage: "<kind>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Usage: "Subject user id for the user and likes feeds"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					kind := api.FeedKind(c.Args().First())
					if kind == "" {
						kind = api.FeedForYou
					}
					if !kind.Valid() {
						return fmt.Errorf("%w: unknown feed kind %q", api.ErrValidation, c.Args().First())
					}

					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						posts, err := cache.ResolveAs[[]*api.Post](ctx, app.Cache, cache.FeedKey(kind, c.String("subject")))
						if err != nil {
							return err
						}
						printPosts(posts)
						return nil
					})
				},
			},
			{
				Name:  "suggestions",
				Usage: "Show users recommended to follow",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						users, err := cache.ResolveAs[[]*api.UserSummary](ctx, app.Cache, cache.SuggestedUsersKey())
						if err != nil {
							return err
						}
						printUserList(users)
						return nil
					})
				},
			},
			{
				Name:      "search",
				Usage:     "Search the user directory",
				ArgsUsage: "[query]",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						users, err := cache.ResolveAs[[]*api.UserSummary](ctx, app.Cache, cache.SearchResultsKey())
						if err != nil {
							return err
						}
						printUserList(filterUsers(users, c.Args().First()))
						return nil
					})
				},
			},
			{
				Name:      "profile",
				Usage:     "Show a user's profile with followers and followings",
				ArgsUsage: "<username>",
				Action: func(ctx context.Context, c *cli.Command) error {
					username := c.Args().First()
					if username == "" {
						return fmt.Errorf("%w: username", errMissingArgument)
					}

					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						profile, err := cache.ResolveAs[*api.User](ctx, app.Cache, cache.UserProfileKey(username))
						if err != nil {
							return err
						}

						bundle, err := app.API.Users().ProfileBundle(ctx, username, profile.ID)
						if err != nil {
							return err
						}

						printUser(bundle.Profile)
						fmt.Printf("Followers: %d, Following: %d\n", len(bundle.Followers), len(bundle.Followings))
						return nil
					})
				},
			},
			{
				Name:      "follow",
				Usage:     "Follow or unfollow a user",
				ArgsUsage: "<user-id>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						_, err := app.Mutations.Follow(ctx, c.Args().First())
						return err
					})
				},
			},
			{
				Name:      "like",
				Usage:     "Like or unlike a post",
				ArgsUsage: "<post-id>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						return app.Mutations.Like(ctx, c.Args().First())
					})
				},
			},
			{
				Name:      "bookmark",
				Usage:     "Bookmark or un-bookmark a post",
				ArgsUsage: "<post-id>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						return app.Mutations.Bookmark(ctx, c.Args().First())
					})
				},
			},
			{
				Name:      "comment",
				Usage:     "Comment on a post",
				ArgsUsage: "<post-id> <text>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						text := strings.Join(c.Args().Tail(), " ")
						return app.Mutations.Comment(ctx, c.Args().First(), text)
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete one of your posts",
				ArgsUsage: "<post-id>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						return app.Mutations.DeletePost(ctx, c.Args().First())
					})
				},
			},
			{
				Name:  "update-profile",
				Usage: "Edit the signed-in user's profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "fullname", Usage: "Display name"},
					&cli.StringFlag{Name: "username", Usage: "New username"},
					&cli.StringFlag{Name: "email", Usage: "New email"},
					&cli.StringFlag{Name: "bio", Usage: "Profile bio"},
					&cli.StringFlag{Name: "link", Usage: "Profile link"},
					&cli.StringFlag{Name: "current-password", Usage: "Current password, required to change it"},
					&cli.StringFlag{Name: "new-password", Usage: "New password"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						user, err := app.Mutations.UpdateProfile(ctx, api.UpdateProfileParams{
							FullName:        c.String("fullname"),
							Username:        c.String("username"),
							Email:           c.String("email"),
							Bio:             c.String("bio"),
							Link:            c.String("link"),
							CurrentPassword: c.String("current-password"),
							NewPassword:     c.String("new-password"),
						})
						if err != nil {
							return err
						}
						printUser(user)
						return nil
					})
				},
			},
			{
				Name:      "verify-email",
				Usage:     "Verify an email address from a verification link",
				ArgsUsage: "<user-id> <token>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						return app.Mutations.VerifyEmail(ctx, c.Args().Get(0), c.Args().Get(1))
					})
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// withApp runs fn against an initialized application and prints any
// notifications the mutation layer produced before tearing down.
func withApp(ctx context.Context, fn func(ctx context.Context, app *setup.App) error) error {
	app, err := setup.InitializeApp(ctx)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	runErr := fn(ctx, app)
	drainNotifications(app.Notifier)

	return runErr
}

// drainNotifications prints every buffered notification without blocking.
func drainNotifications(notifier *notify.Channel) {
	for {
		select {
		case n := <-notifier.Notifications():
			fmt.Printf("[%s] %s\n", n.Level, n.Message)
		default:
			return
		}
	}
}

func printUser(user *api.User) {
	fmt.Printf("@%s (%s)\n", user.Username, user.FullName)
	if user.Bio != "" {
		fmt.Println(user.Bio)
	}
	if user.Link != "" {
		fmt.Println(user.Link)
	}
	fmt.Printf("Followers: %d, Following: %d, Bookmarks: %d\n",
		len(user.Followers), len(user.Following), len(user.Bookmarks))
}

func printUserList(users []*api.UserSummary) {
	if len(users) == 0 {
		fmt.Println("No users found")
		return
	}
	for _, user := range users {
		fmt.Printf("%s  @%s (%s)\n", user.ID, user.Username, user.FullName)
	}
}

func printPosts(posts []*api.Post) {
	if len(posts) == 0 {
		fmt.Println("No posts")
		return
	}
	for _, post := range posts {
		author := post.Author
		if post.AuthorDetails != nil {
			author = "@" + post.AuthorDetails.Username
		}
		fmt.Printf("%s  %s: %s  (%d likes, %d comments)\n",
			post.ID, author, post.Text, len(post.Likes), len(post.Comments))
	}
}

// filterUsers narrows the directory to entries matching the query on
// username or full name. An empty query returns everything.
func filterUsers(users []*api.UserSummary, query string) []*api.UserSummary {
	if query == "" {
		return users
	}

	query = strings.ToLower(query)

	var matched []*api.UserSummary
	for _, user := range users {
		if strings.Contains(strings.ToLower(user.Username), query) ||
			strings.Contains(strings.ToLower(user.FullName), query) {
			matched = append(matched, user)
		}
	}
	return matched
}
