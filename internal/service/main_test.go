package service

import (
	"os"
	"testing"

	"github.com/stemsi/student-registry/internal/validator"
)

func TestMain(m *testing.M) {
	validator.Setup()
	os.Exit(m.Run())
}
