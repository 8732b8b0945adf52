package models

import (
	"database/sql"
	"time"
)

type Category struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Image     sql.NullString `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}

// CategoryResponse image为空时输出null，与前端约定一致
type CategoryResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Category) Response() CategoryResponse {
	resp := CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
	}
	if c.Image.Valid && c.Image.String != "" {
		resp.Image = &c.Image.String
	}
	return resp
}

// CategoryRef 嵌入产品响应中的分类摘要
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
