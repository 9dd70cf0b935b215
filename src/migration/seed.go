package migration

import (
	"context"
	"fmt"
	"strings"

	"git.handmade.network/hmn/syllabus/src/auth"
	"git.handmade.network/hmn/syllabus/src/config"
	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/hmndata"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/syllabus"
	"git.handmade.network/hmn/syllabus/src/utils"
	lorem "github.com/HandmadeNetwork/golorem"
	"github.com/jackc/pgx/v5/tracelog"
)

// Seeds the database with sample data for local dev. Every user's password is
// "password".
func SampleSeed() {
	Migrate(LatestVersion())

	ctx := context.Background()
	conn := db.NewConnWithConfig(config.PostgresConfig{
		LogLevel: tracelog.LogLevelWarn,
	})
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		panic(err)
	}
	defer tx.Rollback(ctx)

	fmt.Println("Creating admin user (\"admin\"/\"password\")...")
	seedUser(ctx, tx, models.User{Username: "admin", Email: "admin@example.edu", IsStaff: true})

	fmt.Println("Creating instructors and students (all with password \"password\")...")
	instructor := seedUser(ctx, tx, models.User{Username: "prof", Name: "Professor Plum"})
	alice := seedUser(ctx, tx, models.User{Username: "alice", Name: "Alice"})
	bob := seedUser(ctx, tx, models.User{Username: "bob", Name: "Bob"})
	seedUser(ctx, tx, models.User{Username: "visitor", Name: "Visiting Student"})

	fmt.Println("Creating courses...")
	store := &syllabus.PostgresStore{Conn: tx}
	for i, shortName := range []string{"CS 101", "MATH 210", "HIST 330"} {
		course := seedCourse(ctx, tx, shortName)
		utils.Must(hmndata.Enrol(ctx, tx, course.ID, instructor.ID, models.CourseRoleInstructor))
		utils.Must(hmndata.Enrol(ctx, tx, course.ID, alice.ID, models.CourseRoleStudent))
		if i%2 == 0 {
			utils.Must(hmndata.Enrol(ctx, tx, course.ID, bob.ID, models.CourseRoleStudent))
		}

		// One course of each shape: public only, private only, and empty.
		switch i {
		case 0:
			utils.Must(store.Insert(ctx, &syllabus.Record{
				CourseID:    course.ID,
				Kind:        syllabus.KindPublic,
				AccessLevel: syllabus.AccessPublic,
				DisplayName: syllabus.DefaultDisplayName,
				IsPreview:   true,
				Source:      syllabus.Source{Url: "https://example.edu/syllabi/cs101.pdf"},
			}))
		case 1:
			utils.Must(store.Insert(ctx, &syllabus.Record{
				CourseID:    course.ID,
				Kind:        syllabus.KindPrivate,
				AccessLevel: syllabus.AccessPrivate,
				DisplayName: "Course outline",
				Source:      syllabus.Source{Url: "https://example.edu/syllabi/math210"},
			}))
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Println("Done!")
}

func seedUser(ctx context.Context, conn db.ConnOrTx, input models.User) *models.User {
	user, err := db.QueryOne[models.User](ctx, conn,
		`
		INSERT INTO site_user (username, password, email, name, is_staff, date_joined)
		VALUES ($1, '', $2, $3, $4, '2026-01-01T00:00:00Z')
		RETURNING $columns
		`,
		input.Username,
		utils.OrDefault(input.Email, fmt.Sprintf("%s@example.edu", input.Username)),
		utils.OrDefault(input.Name, randomName()),
		input.IsStaff,
	)
	if err != nil {
		panic(err)
	}
	err = auth.SetPassword(ctx, conn, input.Username, "password")
	if err != nil {
		panic(err)
	}

	return user
}

func seedCourse(ctx context.Context, conn db.ConnOrTx, shortName string) *models.Course {
	course, err := db.QueryOne[models.Course](ctx, conn,
		`
		INSERT INTO course (shortname, fullname)
		VALUES ($1, $2)
		RETURNING $columns
		`,
		shortName,
		strings.TrimSuffix(lorem.Sentence(3, 6), "."),
	)
	if err != nil {
		panic(err)
	}
	return course
}

func randomName() string {
	return capitalize(lorem.Word(4, 8)) + " " + capitalize(lorem.Word(5, 10))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
