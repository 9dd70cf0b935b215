package website

import (
	"context"
	"errors"

	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/hmndata"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/syllabus"
)

var ErrNoSuchCourse = errors.New("course does not exist")

// What the website needs to know about courses and who takes them.
type CourseDirectory interface {
	Courses(ctx context.Context) ([]*models.Course, error)
	// Returns ErrNoSuchCourse if there is no such course.
	Course(ctx context.Context, courseID int) (*models.Course, error)
	// The user's role in the course, or false if they are not enrolled.
	Role(ctx context.Context, courseID, userID int) (models.CourseRole, bool, error)
}

type dbCourseDirectory struct {
	conn db.ConnOrTx
}

func NewDBCourseDirectory(conn db.ConnOrTx) CourseDirectory {
	return &dbCourseDirectory{conn: conn}
}

func (d *dbCourseDirectory) Courses(ctx context.Context) ([]*models.Course, error) {
	return hmndata.FetchCourses(ctx, d.conn, hmndata.CoursesQuery{})
}

func (d *dbCourseDirectory) Course(ctx context.Context, courseID int) (*models.Course, error) {
	course, err := hmndata.FetchCourse(ctx, d.conn, courseID)
	if errors.Is(err, db.NotFound) {
		return nil, ErrNoSuchCourse
	}
	return course, err
}

func (d *dbCourseDirectory) Role(ctx context.Context, courseID, userID int) (models.CourseRole, bool, error) {
	enrolment, err := hmndata.FetchEnrolment(ctx, d.conn, courseID, userID)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return enrolment.Role, true, nil
}

// What the current user may do with the course's syllabi. Staff manage every
// course; instructors manage their own.
func courseCapabilities(c *RequestContext, course *models.Course) (syllabus.Capabilities, error) {
	var caps syllabus.Capabilities
	if c.CurrentUser == nil {
		return caps, nil
	}

	caps.LoggedIn = true
	caps.Manager = c.CurrentUser.IsStaff

	c.Perf.StartBlock("SQL", "Fetch course role")
	role, enrolled, err := c.Courses.Role(c, course.ID, c.CurrentUser.ID)
	c.Perf.EndBlock()
	if err != nil {
		return caps, err
	}

	caps.Enrolled = enrolled
	if enrolled && role.CanManage() {
		caps.Manager = true
	}

	return caps, nil
}
