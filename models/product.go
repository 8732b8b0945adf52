package models

import (
	"database/sql"
	"time"
)

type Product struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       float64        `json:"price"`
	CategoryID  sql.NullInt64  `json:"-"`
	Image       sql.NullString `json:"-"`
	Images      StringList     `json:"images"`
	Size        StringList     `json:"size"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type ProductResponse struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       float64      `json:"price"`
	CategoryID  *int64       `json:"category_id"`
	Category    *CategoryRef `json:"category"`
	Image       *string      `json:"image"`
	Images      StringList   `json:"images"`
	Size        StringList   `json:"size"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (p Product) Response(category *CategoryRef) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    category,
		Images:      p.Images,
		Size:        p.Size,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.CategoryID.Valid {
		resp.CategoryID = &p.CategoryID.Int64
	}
	if p.Image.Valid && p.Image.String != "" {
		resp.Image = &p.Image.String
	}
	if resp.Images == nil {
		resp.Images = StringList{}
	}
	if resp.Size == nil {
		resp.Size = StringList{}
	}
	return resp
}
