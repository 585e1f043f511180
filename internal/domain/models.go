// internal/domain/models.go
package domain

import "time"

// User defines the structure for account data in the metadata DB.
type User struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Record is one row fetched from an external table: column name → scalar.
type Record map[string]any

// Endpoint carries the coordinates needed to fetch a table's live records.
type Endpoint struct {
	APIURL    string `json:"api_url"`
	AuthToken string `json:"-"`
}

// Table is one introspected external table, with its columns and the
// endpoint its live records come from. Table names are unique per account.
type Table struct {
	ID          int64    `json:"id"`
	UserID      string   `json:"-"`
	Name        string   `json:"table_name"`
	Description string   `json:"table_description"`
	Endpoint    Endpoint `json:"endpoint"`
	Columns     []Column `json:"columns"`
}

// Column belongs to exactly one table. IsUserID marks it as holding an
// external end-user identifier; the join engine seeds from such columns.
type Column struct {
	ID            int64          `json:"id"`
	TableID       int64          `json:"table_id"`
	Name          string         `json:"column_name"`
	Description   string         `json:"column_description"`
	IsUserID      bool           `json:"is_user_id"`
	ValueMappings []ValueMapping `json:"value_mappings,omitempty"`
}

// ValueMapping attaches a human meaning to a raw column value.
type ValueMapping struct {
	ID      int64  `json:"id"`
	Value   string `json:"value"`
	Meaning string `json:"meaning"`
}

// Relation declares "ToColumn in ToTable may be joined against FromColumn
// in FromTable". Stored directed, traversed in either direction.
type Relation struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"-"`
	FromTable  string    `json:"from_table"`
	FromColumn string    `json:"from_column"`
	ToTable    string    `json:"to_table"`
	ToColumn   string    `json:"to_column"`
	CreatedAt  time.Time `json:"created_at"`
}

// Category is a named grouping of table names. A valid category contains
// at least one table that has an identity column.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"category_name"`
	Tables    []string  `json:"tables"`
	CreatedAt time.Time `json:"created_at"`
}

// InquiryRun is the immutable record of one prepare request.
type InquiryRun struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"-"`
	TargetUserID    string    `json:"target_user_id"`
	InquiryContent  string    `json:"inquiry_content"`
	DataSummary     string    `json:"data_summary"`
	InquiryElements string    `json:"inquiry_elements"`
	CreatedAt       time.Time `json:"created_at"`
}

// Knowledge document kinds accepted by the upload endpoint.
const (
	KnowledgePDF  = "pdf"
	KnowledgeURL  = "url"
	KnowledgeText = "text"
)

// Knowledge is an uploaded retrieval-augmentation document.
type Knowledge struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"knowledge_name"`
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"` // URL, or blob path for pdf/text
	CreatedAt time.Time `json:"created_at"`
}

// TrainingData is an uploaded CSV fine-tuning file.
type TrainingData struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	FileName  string    `json:"file_name"`
	FilePath  string    `json:"file_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TrainingModel tracks a submitted fine-tuning job.
type TrainingModel struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"-"`
	ModelName   string    `json:"model_name"`
	JobID       string    `json:"job_id,omitempty"`
	EndpointURL string    `json:"endpoint_url,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ServiceAccount holds a registered cloud service-account key, one per account.
type ServiceAccount struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
