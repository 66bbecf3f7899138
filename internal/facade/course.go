package facade

import (
	"context"
	"net/http"
	"net/url"

	"github.com/MrSnakeDoc/relay/internal/catalog"
	"github.com/MrSnakeDoc/relay/internal/executor"
	"github.com/MrSnakeDoc/relay/internal/pagination"
)

type Course struct {
	ID               int    `json:"id"`
	ExternalCourseID string `json:"external_course_id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	DateAdded        string `json:"date_added"`
	ImageURL         string `json:"image_url"`
}

type CourseDetails struct {
	Course
	Lessons       []Lesson       `json:"lessons"`
	Comments      []Comment      `json:"comments"`
	Homeworks     []Homework     `json:"homeworks"`
	Registrations []Registration `json:"registrations"`
}

type Lesson struct {
	ID               int    `json:"id"`
	ExternalLessonID string `json:"external_lesson_id"`
	Title            string `json:"title"`
	Course           int    `json:"course"`
	SourceCodeURL    string `json:"source_code_url"`
	DateAdded        string `json:"date_added"`
	ReadingURL       string `json:"reading_url"`
	CourseExternalID string `json:"course_external_id"`
}

type Comment struct {
	ID                int    `json:"id"`
	ExternalCommentID string `json:"external_comment_id"`
	Content           string `json:"content"`
	DateAdded         string `json:"date_added"`
	UserID            string `json:"user_id"`
	Course            int    `json:"course"`
	CourseExternalID  string `json:"course_external_id"`
}

type Homework struct {
	ID                 int     `json:"id"`
	ExternalHomeworkID string  `json:"external_homework_id"`
	Title              string  `json:"title"`
	HomeworkURL        string  `json:"homework_url"`
	Course             int     `json:"course"`
	Lesson             *int    `json:"lesson"`
	Description        string  `json:"description"`
	CourseExternalID   string  `json:"course_external_id"`
	LessonExternalID   *string `json:"lesson_external_id"`
}

type Registration struct {
	ID               int    `json:"id"`
	ExternalID       string `json:"external_id"`
	UserID           string `json:"user_id"`
	Course           int    `json:"course"`
	DateRegistered   string `json:"date_registered"`
	CourseExternalID string `json:"course_external_id"`
}

type SubmittedHomework struct {
	ID                          int     `json:"id"`
	ExternalSubmittedHomeworkID string  `json:"external_submitted_homework_id"`
	UserID                      string  `json:"user_id"`
	Homework                    int     `json:"homework"`
	SubmittedHomeworkURL        string  `json:"submitted_homework_url"`
	Description                 *string `json:"description"`
	DateSubmitted               string  `json:"date_submitted"`
	HomeworkExternalID          string  `json:"homework_external_id"`
}

// NewComment, NewRegistration and NewSubmission reference the course and
// homework by external id.
type NewComment struct {
	ExternalCommentID string `json:"external_comment_id"`
	Content           string `json:"content"`
	UserID            string `json:"user_id"`
	Course            string `json:"course"`
}

type NewRegistration struct {
	ExternalID string `json:"external_id"`
	UserID     string `json:"user_id"`
	Course     string `json:"course"`
}

type NewSubmission struct {
	ExternalSubmittedHomeworkID string `json:"external_submitted_homework_id"`
	UserID                      string `json:"user_id"`
	Homework                    string `json:"homework"`
	SubmittedHomeworkURL        string `json:"submitted_homework_url"`
	Description                 string `json:"description,omitempty"`
}

// Courses talks to the course service.
type Courses struct {
	base
}

func NewCourses(deps Deps, svc catalog.Service) *Courses {
	return &Courses{base: newBase(deps, svc, "course")}
}

// ListCourses accepts any of the list shapes the backend has used.
func (c *Courses) ListCourses(ctx context.Context) (pagination.Page[Course], error) {
	return list[Course](ctx, &c.base, executor.Request{Method: http.MethodGet, Path: "/courses/"})
}

func (c *Courses) CourseDetails(ctx context.Context, externalCourseID string) (CourseDetails, error) {
	return call[CourseDetails](ctx, &c.base, executor.Request{
		Method: http.MethodGet,
		Path:   "/courses/" + url.PathEscape(externalCourseID) + "/",
	})
}

func (c *Courses) CreateComment(ctx context.Context, in NewComment) (Comment, error) {
	return call[Comment](ctx, &c.base, executor.Request{
		Method: http.MethodPost,
		Path:   "/comments/",
		Body:   in,
	})
}

func (c *Courses) DeleteComment(ctx context.Context, externalCommentID string) error {
	_, err := c.send(ctx, executor.Request{
		Method: http.MethodDelete,
		Path:   "/comments/" + url.PathEscape(externalCommentID) + "/",
	})
	return err
}

func (c *Courses) RegisterToCourse(ctx context.Context, in NewRegistration) (Registration, error) {
	return call[Registration](ctx, &c.base, executor.Request{
		Method: http.MethodPost,
		Path:   "/register-user/",
		Body:   in,
	})
}

func (c *Courses) LessonHomeworks(ctx context.Context, externalLessonID string) (pagination.Page[Homework], error) {
	return list[Homework](ctx, &c.base, executor.Request{
		Method: http.MethodGet,
		Path:   "/lessons/" + url.PathEscape(externalLessonID) + "/homeworks/",
	})
}

func (c *Courses) SubmitHomework(ctx context.Context, in NewSubmission) (SubmittedHomework, error) {
	return call[SubmittedHomework](ctx, &c.base, executor.Request{
		Method: http.MethodPost,
		Path:   "/submit-homework/",
		Body:   in,
	})
}

func (c *Courses) UserRegistrations(ctx context.Context, userID string) (pagination.Page[Registration], error) {
	return list[Registration](ctx, &c.base, executor.Request{
		Method: http.MethodGet,
		Path:   "/registrations/?" + url.Values{"user_id": {userID}}.Encode(),
	})
}
