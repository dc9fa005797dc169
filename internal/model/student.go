package model

// Gender is the student's self-reported gender.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// ClassLabels is the fixed set of class names offered by the registration form.
var ClassLabels = []string{
	"Class 1", "Class 2", "Class 3", "Class 4", "Class 5", "Class 6",
	"Class 7", "Class 8", "Class 9", "Class 10", "Class 11", "Class 12",
}

// IsClassLabel reports whether class is one of ClassLabels.
func IsClassLabel(class string) bool {
	for _, l := range ClassLabels {
		if l == class {
			return true
		}
	}
	return false
}

// Student is a registered student record.
type Student struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender Gender `json:"gender"`
	Class  string `json:"class"`
}

// StudentSubmission is a registration after wire-level coercion, before validation.
// Age is a pointer so that "missing" and "zero" report differently.
type StudentSubmission struct {
	Name   string `json:"name" binding:"required"`
	Age    *int   `json:"age" binding:"required,gte=5,lte=100"`
	Gender string `json:"gender" binding:"required,oneof=Male Female Other"`
	Class  string `json:"class" binding:"required"`
}

// StudentFieldMessages maps "field.tag" validation failures to user-facing text.
var StudentFieldMessages = map[string]string{
	"name.required":   "Name is required",
	"age.required":    "Age is required",
	"age.gte":         "Age must be at least 5",
	"age.lte":         "Age must be at most 100",
	"gender.required": "Gender is required",
	"gender.oneof":    "Gender is required",
	"class.required":  "Class is required",
}
