// api/models/category_models.go
package models

// CategoryPayload is one category in a save request or generate response.
type CategoryPayload struct {
	Name   string   `json:"name" binding:"required"`
	Tables []string `json:"tables" binding:"required,min=1"`
}

// SaveCategoriesRequest replaces the account's whole category set.
type SaveCategoriesRequest struct {
	Categories []CategoryPayload `json:"categories" binding:"required,dive"`
}
