package courses

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chisomo-dev/coachpay/internal/db"
)

type Course struct {
	ID           string    `json:"id"`
	CoachID      string    `json:"coach_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PriceCredits int64     `json:"price_credits"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateCourse allows a coach to publish a new course
func CreateCourse(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)
	if role != "coach" && role != "admin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only coaches can publish courses"})
	}

	var req struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		PriceCredits int64  `json:"price_credits"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == "" || req.PriceCredits <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and a positive price are required"})
	}

	courseID := uuid.New().String()
	_, err := db.Conn.Exec(
		context.Background(),
		`INSERT INTO courses (id, coach_id, title, description, price_credits, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, 'active', $6)`,
		courseID, uid, req.Title, req.Description, req.PriceCredits, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create course"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"course_id": courseID,
		"message":   "course created successfully",
	})
}

// GetAllCourses returns active courses for discovery
func GetAllCourses(c echo.Context) error {
	limit := 20
	offset := 0
	if l := c.QueryParam("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	query := `SELECT id, coach_id, title, description, price_credits, status, created_at
	          FROM courses WHERE status = 'active'`
	var args []any
	if q := c.QueryParam("q"); q != "" {
		query += ` AND (title ILIKE $1 OR description ILIKE $1)`
		args = append(args, "%"+q+"%")
	}
	query += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(offset)

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch courses"})
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		var course Course
		if err := rows.Scan(&course.ID, &course.CoachID, &course.Title, &course.Description,
			&course.PriceCredits, &course.Status, &course.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scan error"})
		}
		out = append(out, course)
	}
	return c.JSON(http.StatusOK, echo.Map{"courses": out})
}

// GetMyCourses returns the authenticated coach's own courses
func GetMyCourses(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, coach_id, title, description, price_credits, status, created_at
		 FROM courses WHERE coach_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch courses"})
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		var course Course
		if err := rows.Scan(&course.ID, &course.CoachID, &course.Title, &course.Description,
			&course.PriceCredits, &course.Status, &course.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scan error"})
		}
		out = append(out, course)
	}
	return c.JSON(http.StatusOK, echo.Map{"courses": out})
}
