package oops

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

var errSample = errors.New("syllabus storage is unavailable")

type sampleErrorType struct {
	Message string
}

func (s sampleErrorType) Error() string {
	return s.Message
}

func init() {
	zerolog.ErrorStackMarshaler = ZerologStackMarshaler
}

func TestNew(t *testing.T) {
	t.Run("errors.Is", func(t *testing.T) {
		err := New(errSample, "failed to save syllabus")
		assert.ErrorIs(t, err, errSample)
	})
	t.Run("errors.As", func(t *testing.T) {
		err := New(sampleErrorType{Message: "bad upload"}, "failed to save syllabus")
		var sErr sampleErrorType
		assert.True(t, errors.As(err, &sErr))
		assert.Equal(t, "bad upload", sErr.Message)
	})
	t.Run("message", func(t *testing.T) {
		assert.Equal(t, "failed to save syllabus: syllabus storage is unavailable", New(errSample, "failed to save %s", "syllabus").Error())
		assert.Equal(t, "nothing wrapped", New(nil, "nothing wrapped").Error())
	})
	t.Run("stack starts at caller", func(t *testing.T) {
		err := New(nil, "here").(*Error)
		if assert.NotEmpty(t, err.Stack) {
			assert.True(t, strings.HasSuffix(err.Stack[0].Function, "TestNew.func4"), err.Stack[0].Function)
		}
	})
}
