// api/models/inquiry_models.go
package models

// PrepareInquiryRequest starts one inquiry preparation run. UserID is the
// target end-user identifier to collect data for, compared by stringified
// equality against record values.
type PrepareInquiryRequest struct {
	UserID         string  `json:"userId" binding:"required"`
	InquiryContent string  `json:"inquiryContent" binding:"required"`
	CategoryIDs    []int64 `json:"categoryIds" binding:"required,min=1"`
}
