package service

import (
	"context"
	"fmt"

	"github.com/stemsi/student-registry/internal/model"
	"github.com/stemsi/student-registry/internal/query"
	"github.com/stemsi/student-registry/internal/repository"
	"github.com/stemsi/student-registry/internal/validator"
)

// StudentPublisher is notified after every successful registration.
type StudentPublisher interface {
	PublishStudentCreated(s model.Student)
}

// StudentService handles student business logic.
type StudentService struct {
	students      repository.StudentStore
	publisher     StudentPublisher
	strictClasses bool
}

// NewStudentService creates a new StudentService. publisher may be nil.
// With strictClasses the class must be one of model.ClassLabels.
func NewStudentService(students repository.StudentStore, publisher StudentPublisher, strictClasses bool) *StudentService {
	return &StudentService{students: students, publisher: publisher, strictClasses: strictClasses}
}

// Register coerces and validates a decoded JSON object and stores the student.
// Every field problem is reported at once in a *ValidationError; nothing is
// stored in that case.
func (s *StudentService) Register(ctx context.Context, raw map[string]any) (*model.Student, error) {
	sub, fields := s.coerce(raw)

	for field, msg := range validator.ValidateStruct(&sub, model.StudentFieldMessages) {
		if _, ok := fields[field]; !ok {
			fields[field] = msg
		}
	}
	if _, bad := fields["class"]; !bad && s.strictClasses && !model.IsClassLabel(sub.Class) {
		fields["class"] = "Class must be one of Class 1 to Class 12"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	student := &model.Student{
		Name:   sub.Name,
		Age:    *sub.Age,
		Gender: model.Gender(sub.Gender),
		Class:  sub.Class,
	}
	if err := s.students.CreateStudent(ctx, student); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}

	if s.publisher != nil {
		s.publisher.PublishStudentCreated(*student)
	}
	return student, nil
}

// coerce converts loose JSON scalars into a submission. Values of the wrong
// type are reported immediately; missing values are left for validation.
func (s *StudentService) coerce(raw map[string]any) (model.StudentSubmission, map[string]string) {
	var sub model.StudentSubmission
	fields := make(map[string]string)

	if v := raw["name"]; v != nil {
		if name, ok := validator.String(v); ok {
			sub.Name = name
		} else {
			fields["name"] = "Name must be a string"
		}
	}
	if v := raw["age"]; v != nil {
		if age, ok := validator.Int(v); ok {
			sub.Age = &age
		} else {
			fields["age"] = "Age must be a whole number"
		}
	}
	if v := raw["gender"]; v != nil {
		// Gender must match exactly, no trimming.
		if gender, ok := v.(string); ok {
			sub.Gender = gender
		} else {
			fields["gender"] = "Gender is required"
		}
	}
	if v := raw["class"]; v != nil {
		if class, ok := validator.String(v); ok {
			sub.Class = class
		} else {
			fields["class"] = "Class must be a string"
		}
	}
	return sub, fields
}

// List returns every student, oldest first.
func (s *StudentService) List(ctx context.Context) ([]model.Student, error) {
	return s.students.ListStudents(ctx)
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int64) (*model.Student, error) {
	return s.students.GetStudent(ctx, id)
}

// Query returns the filtered and sorted view of all students.
func (s *StudentService) Query(ctx context.Context, p query.Params) ([]model.Student, error) {
	all, err := s.students.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	return query.Derive(all, p), nil
}
