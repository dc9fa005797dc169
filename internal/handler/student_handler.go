package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-registry/internal/query"
	"github.com/stemsi/student-registry/internal/response"
	"github.com/stemsi/student-registry/internal/service"
)

// maxSubmissionBytes bounds the registration body.
const maxSubmissionBytes = 64 << 10

// StudentHandler handles registration and the admin student views.
type StudentHandler struct {
	studentService *service.StudentService
	log            zerolog.Logger
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(studentService *service.StudentService, log zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		studentService: studentService,
		log:            log.With().Str("component", "student_handler").Logger(),
	}
}

// CreateStudent godoc
// POST /api/students
// Public registration. Fields arrive as loose JSON scalars and are coerced
// before validation.
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSubmissionBytes)

	raw, ok := decodeObject(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	student, err := h.studentService.Register(c.Request.Context(), raw)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	h.log.Info().Int64("student_id", student.ID).Str("class", student.Class).Msg("Student registered")
	response.Success(c, http.StatusCreated, student)
}

// decodeObject reads the body as a single JSON object. Numbers are kept as
// json.Number so integral floats and large values survive intact.
func decodeObject(c *gin.Context) (map[string]any, bool) {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, false
	}
	// Anything after the object is rejected.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return raw, true
}

// ListStudents godoc
// GET /api/students
// Admin only. Returns every student, oldest first.
func (h *StudentHandler) ListStudents(c *gin.Context) {
	students, err := h.studentService.List(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, students)
}

// QueryStudents godoc
// GET /api/students/query?search=&class=&sort=&dir=
// Admin only. Returns the filtered, sorted view of all students.
func (h *StudentHandler) QueryStudents(c *gin.Context) {
	params, err := query.ParseParams(c.Request.URL.Query())
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuery, map[string]string{"detail": err.Error()})
		return
	}

	students, err := h.studentService.Query(c.Request.Context(), params)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, students)
}

// GetStudent godoc
// GET /api/students/:id
// Admin only. Returns a single student.
func (h *StudentHandler) GetStudent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, student)
}
