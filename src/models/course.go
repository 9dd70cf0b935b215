package models

import "reflect"

var CourseType = reflect.TypeOf(Course{})

type Course struct {
	ID        int    `db:"id"`
	ShortName string `db:"shortname"`
	FullName  string `db:"fullname"`
}

type CourseRole string

const (
	CourseRoleStudent    CourseRole = "student"
	CourseRoleInstructor CourseRole = "instructor"
)

type Enrolment struct {
	CourseID int        `db:"course_id"`
	UserID   int        `db:"user_id"`
	Role     CourseRole `db:"role"`
}

// Instructors can manage the course's syllabus in addition to viewing it.
func (r CourseRole) CanManage() bool {
	return r == CourseRoleInstructor
}
