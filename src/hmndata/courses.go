package hmndata

import (
	"context"
	"errors"

	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/oops"
	"git.handmade.network/hmn/syllabus/src/perf"
)

type CoursesQuery struct {
	CourseIDs []int // if empty, all courses

	// Only courses this user is enrolled in.
	EnrolledUserID *int
}

func FetchCourses(ctx context.Context, dbConn db.ConnOrTx, q CoursesQuery) ([]*models.Course, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "Fetch courses")
	defer perf.EndBlock()

	var qb db.QueryBuilder
	qb.Add(`
		---- Fetch courses
		SELECT $columns
		FROM course
		WHERE TRUE
	`)
	if len(q.CourseIDs) > 0 {
		qb.Add(`AND course.id = ANY($?)`, q.CourseIDs)
	}
	if q.EnrolledUserID != nil {
		qb.Add(
			`AND EXISTS (SELECT 1 FROM enrolment WHERE enrolment.course_id = course.id AND enrolment.user_id = $?)`,
			*q.EnrolledUserID,
		)
	}
	qb.Add(`ORDER BY course.shortname ASC`)

	courses, err := db.Query[models.Course](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch courses")
	}

	return courses, nil
}

// Returns db.NotFound if there is no such course.
func FetchCourse(ctx context.Context, dbConn db.ConnOrTx, courseID int) (*models.Course, error) {
	courses, err := FetchCourses(ctx, dbConn, CoursesQuery{CourseIDs: []int{courseID}})
	if err != nil {
		return nil, oops.New(err, "failed to fetch course")
	}

	if len(courses) == 0 {
		return nil, db.NotFound
	}

	return courses[0], nil
}

// Returns db.NotFound if the user is not enrolled in the course.
func FetchEnrolment(ctx context.Context, dbConn db.ConnOrTx, courseID, userID int) (*models.Enrolment, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "Fetch enrolment")
	defer perf.EndBlock()

	enrolment, err := db.QueryOne[models.Enrolment](ctx, dbConn,
		`
		---- Fetch enrolment
		SELECT $columns
		FROM enrolment
		WHERE course_id = $1 AND user_id = $2
		`,
		courseID,
		userID,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, db.NotFound
		}
		return nil, oops.New(err, "failed to fetch enrolment")
	}

	return enrolment, nil
}

func Enrol(ctx context.Context, dbConn db.ConnOrTx, courseID, userID int, role models.CourseRole) error {
	_, err := dbConn.Exec(ctx,
		`
		INSERT INTO enrolment (course_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (course_id, user_id) DO UPDATE SET role = EXCLUDED.role
		`,
		courseID,
		userID,
		role,
	)
	if err != nil {
		return oops.New(err, "failed to enrol user %d in course %d", userID, courseID)
	}
	return nil
}
