package admintools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"git.handmade.network/hmn/syllabus/src/auth"
	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/hmndata"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/website"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

func init() {
	adminCommand := &cobra.Command{
		Use:   "admin",
		Short: "Miscellaneous admin commands",
	}
	website.WebsiteCommand.AddCommand(adminCommand)

	adminCommand.AddCommand(
		newSetPasswordCommand(),
		newCreateUserCommand(),
		newUserSetStaffCommand(),
	)
	addCourseCommands(adminCommand)
}

// Runs f with a fresh database connection and closes it afterwards.
func withConn(f func(ctx context.Context, conn *pgx.Conn)) {
	ctx := context.Background()
	conn := db.NewConn()
	defer conn.Close(ctx)

	f(ctx, conn)
}

func exitf(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}

func mustFetchUser(ctx context.Context, conn db.ConnOrTx, username string) *models.User {
	user, err := hmndata.FetchUserByUsername(ctx, conn, username)
	if errors.Is(err, db.NotFound) {
		exitf("User '%s' not found", username)
	} else if err != nil {
		panic(err)
	}
	return user
}

func newSetPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setpassword [username] [new password]",
		Short: "Replace a user's password",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			withConn(func(ctx context.Context, conn *pgx.Conn) {
				user := mustFetchUser(ctx, conn, args[0])
				if err := auth.UpdatePassword(ctx, conn, user.Username, auth.HashPassword(args[1])); err != nil {
					panic(err)
				}
				fmt.Printf("Successfully updated password for '%s'\n", user.Username)
			})
		},
	}
}

func newCreateUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createuser [username]",
		Short: "Creates a new user with the password 'password'",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			username := args[0]
			name, _ := cmd.Flags().GetString("name")
			staff, _ := cmd.Flags().GetBool("staff")
			const password = "password"

			withConn(func(ctx context.Context, conn *pgx.Conn) {
				_, err := hmndata.FetchUserByUsername(ctx, conn, username)
				if err == nil {
					exitf("%s already exists. Please pick a different username.", username)
				} else if !errors.Is(err, db.NotFound) {
					panic(err)
				}

				newUserID, err := db.QueryOneScalar[int](ctx, conn,
					`
					INSERT INTO site_user (username, email, name, password, is_staff, date_joined)
					VALUES ($1, $2, $3, $4, $5, $6)
					RETURNING id
					`,
					username,
					uuid.New().String()+"@example.edu",
					name,
					auth.HashPassword(password).String(),
					staff,
					time.Now(),
				)
				if err != nil {
					panic(err)
				}

				fmt.Printf("New user added!\nID: %d\nUsername: %s\nPassword: %s\n", newUserID, username, password)
			})
		},
	}
	cmd.Flags().String("name", "", "The user's display name")
	cmd.Flags().Bool("staff", false, "Let the user manage the syllabus of every course")
	return cmd
}

func newUserSetStaffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "usersetstaff [username] [true/false]",
		Short: "Toggle whether the user can manage the syllabus of every course",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			makeStaff, err := strconv.ParseBool(args[1])
			if err != nil {
				exitf("Expected 'true' or 'false', got '%s'", args[1])
			}

			withConn(func(ctx context.Context, conn *pgx.Conn) {
				user := mustFetchUser(ctx, conn, args[0])
				_, err := conn.Exec(ctx, "UPDATE site_user SET is_staff = $1 WHERE id = $2", makeStaff, user.ID)
				if err != nil {
					panic(err)
				}
				fmt.Printf("Successfully set %s's is_staff to %v\n", user.Username, makeStaff)
			})
		},
	}
}
