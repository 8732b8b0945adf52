package models

import (
	"database/sql"
	"time"
)

// Submission 艺术品投稿。image_url为旧版单图字段，image_urls为完整列表。
type Submission struct {
	ID         int64          `json:"id"`
	FullName   string         `json:"full_name"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone"`
	Address    string         `json:"address"`
	Title      string         `json:"title"`
	Year       string         `json:"year"`
	Medium     string         `json:"medium"`
	Dimensions string         `json:"dimensions"`
	Price      string         `json:"price"`
	ImageURL   sql.NullString `json:"-"`
	ImageURLs  StringList     `json:"image_urls"`
	Status     string         `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}

type SubmissionResponse struct {
	ID         int64      `json:"id"`
	FullName   string     `json:"full_name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Address    string     `json:"address"`
	Title      string     `json:"title"`
	Year       string     `json:"year"`
	Medium     string     `json:"medium"`
	Dimensions string     `json:"dimensions"`
	Price      string     `json:"price"`
	ImageURL   *string    `json:"image_url"`
	ImageURLs  StringList `json:"image_urls"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (s Submission) Response() SubmissionResponse {
	resp := SubmissionResponse{
		ID:         s.ID,
		FullName:   s.FullName,
		Email:      s.Email,
		Phone:      s.Phone,
		Address:    s.Address,
		Title:      s.Title,
		Year:       s.Year,
		Medium:     s.Medium,
		Dimensions: s.Dimensions,
		Price:      s.Price,
		ImageURLs:  s.ImageURLs,
		Status:     s.Status,
		CreatedAt:  s.CreatedAt,
	}
	if s.ImageURL.Valid && s.ImageURL.String != "" {
		resp.ImageURL = &s.ImageURL.String
	}
	if resp.ImageURLs == nil {
		resp.ImageURLs = StringList{}
	}
	return resp
}

// CreateSubmissionRequest JSON形式的投稿请求（multipart走表单解析）
type CreateSubmissionRequest struct {
	FullName   string     `json:"full_name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Address    string     `json:"address"`
	Title      string     `json:"title"`
	Year       string     `json:"year"`
	Medium     string     `json:"medium"`
	Dimensions string     `json:"dimensions"`
	Price      string     `json:"price"`
	ImageURL   string     `json:"image_url"`
	ImageURLs  StringList `json:"image_urls"`
}
