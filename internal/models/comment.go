package models

import "time"

// Comment is a user comment on a video
type Comment struct {
	ID         string    `json:"id" dynamodbav:"comment_id"`
	VideoID    string    `json:"videoId" dynamodbav:"video_id"`
	AuthorID   string    `json:"authorId" dynamodbav:"author_id"`
	AuthorName string    `json:"authorName" dynamodbav:"author_name"`
	Text       string    `json:"text" dynamodbav:"text"`
	CreatedAt  time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// CommentRequest is the body for creating or editing a comment
type CommentRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// CommentListResponse wraps a listing
type CommentListResponse struct {
	Comments []Comment `json:"comments"`
	Count    int       `json:"count"`
}
