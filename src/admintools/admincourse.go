package admintools

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/hmndata"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/syllabus"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

func addCourseCommands(adminCommand *cobra.Command) {
	courseCommand := &cobra.Command{
		Use:   "course",
		Short: "Admin commands for managing courses",
	}
	adminCommand.AddCommand(courseCommand)

	courseCommand.AddCommand(
		newCreateCourseCommand(),
		newEnrolCommand(),
		newShowSyllabiCommand(),
	)
}

func newCreateCourseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new course",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			shortName, _ := cmd.Flags().GetString("shortname")
			fullName, _ := cmd.Flags().GetString("fullname")
			if fullName == "" {
				fullName = shortName
			}

			withConn(func(ctx context.Context, conn *pgx.Conn) {
				newCourseID, err := db.QueryOneScalar[int](ctx, conn,
					`
					INSERT INTO course (shortname, fullname)
					VALUES ($1, $2)
					RETURNING id
					`,
					shortName,
					fullName,
				)
				if err != nil {
					panic(err)
				}
				fmt.Printf("Course '%s' created with ID %d\n", shortName, newCourseID)
			})
		},
	}
	cmd.Flags().String("shortname", "", "The course code shown in headings")
	cmd.Flags().String("fullname", "", "The full course title")
	cmd.MarkFlagRequired("shortname")
	return cmd
}

func newEnrolCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enrol [course id] [username] [student/instructor]",
		Short: "Enrol a user in a course, or change their role",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			courseID := parseCourseID(args[0])
			role := models.CourseRole(args[2])
			if role != models.CourseRoleStudent && role != models.CourseRoleInstructor {
				exitf("Role must be '%s' or '%s'", models.CourseRoleStudent, models.CourseRoleInstructor)
			}

			withConn(func(ctx context.Context, conn *pgx.Conn) {
				course := mustFetchCourse(ctx, conn, courseID)
				user := mustFetchUser(ctx, conn, args[1])
				if err := hmndata.Enrol(ctx, conn, course.ID, user.ID, role); err != nil {
					panic(err)
				}
				fmt.Printf("%s is now a %s in %s\n", user.Username, role, course.ShortName)
			})
		},
	}
}

func newShowSyllabiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "syllabi [course id]",
		Short: "Show the syllabus records of a course",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			courseID := parseCourseID(args[0])

			withConn(func(ctx context.Context, conn *pgx.Conn) {
				course := mustFetchCourse(ctx, conn, courseID)
				store := &syllabus.PostgresStore{Conn: conn}
				records, err := store.Syllabi(ctx, course.ID)
				if err != nil {
					panic(err)
				}

				fmt.Printf("%s: %s\n", course.ShortName, course.FullName)
				if records.Empty() {
					fmt.Println("  no syllabus uploaded")
				}
				for _, rec := range []*syllabus.Record{records.Public, records.Private} {
					if rec != nil {
						fmt.Println(describeRecord(rec))
					}
				}
			})
		},
	}
}

func describeRecord(rec *syllabus.Record) string {
	source := rec.Source.Url
	if f := rec.Source.File; f != nil {
		source = fmt.Sprintf("%s (%d bytes, %s)", f.Filename, f.Size, f.Key)
	}
	return fmt.Sprintf("  [%s] #%d %q access=%s preview=%v modified=%s\n    %s",
		rec.Kind, rec.ID, rec.DisplayName, rec.AccessLevel, rec.IsPreview,
		rec.TimeModified.Format("2006-01-02 15:04"), source)
}

func parseCourseID(s string) int {
	courseID, err := strconv.Atoi(s)
	if err != nil {
		exitf("Bad course id '%s'", s)
	}
	return courseID
}

func mustFetchCourse(ctx context.Context, conn db.ConnOrTx, courseID int) *models.Course {
	course, err := hmndata.FetchCourse(ctx, conn, courseID)
	if errors.Is(err, db.NotFound) {
		exitf("Course %d not found", courseID)
	} else if err != nil {
		panic(err)
	}
	return course
}
