// api/models/knowledge_models.go
package models

// KnowledgeUploadRequest uploads one knowledge document. Content is raw
// text, a URL, or base64-encoded PDF bytes depending on Type.
type KnowledgeUploadRequest struct {
	KnowledgeName string `json:"knowledgeName" binding:"required"`
	Type          string `json:"type" binding:"required,oneof=pdf url text"`
	Content       string `json:"content" binding:"required"`
}

// TrainingUploadRequest uploads one CSV training file.
type TrainingUploadRequest struct {
	FileName string `json:"fileName" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

// TrainingModelRequest submits a fine-tuning job over uploaded files.
type TrainingModelRequest struct {
	ModelName       string  `json:"modelName" binding:"required"`
	TrainingDataIDs []int64 `json:"trainingDataIds" binding:"required,min=1"`
}

// ServiceAccountRequest registers a cloud service-account key.
type ServiceAccountRequest struct {
	ServiceAccountKey string `json:"serviceAccountKey" binding:"required"`
}

// ConnectorTestRequest probes an external help-center connector.
type ConnectorTestRequest struct {
	Subdomain string `json:"subdomain" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	APIToken  string `json:"apiToken" binding:"required"`
	Locale    string `json:"locale"`
}
