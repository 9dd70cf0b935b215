package models

import (
	"reflect"
	"time"
)

var UserType = reflect.TypeOf(User{})

type User struct {
	ID int `db:"id"`

	Username string `db:"username"`
	Password string `db:"password"`
	Email    string `db:"email"`
	Name     string `db:"name"`

	DateJoined time.Time  `db:"date_joined"`
	LastLogin  *time.Time `db:"last_login"`

	// Staff can manage the syllabus of every course.
	IsStaff bool `db:"is_staff"`
}

func (u *User) BestName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
