package dto

// ── Certificate template DTOs ──

// TemplateDesignPayload typed design options.
type TemplateDesignPayload struct {
	BackgroundColor string `json:"background_color" binding:"omitempty,hexcolor"`
	BorderColor     string `json:"border_color"     binding:"omitempty,hexcolor"`
	FontFamily      string `json:"font_family"      binding:"omitempty,max=100"`
	TitleFontSize   int    `json:"title_font_size"  binding:"omitempty,min=8,max=96"`
	BodyFontSize    int    `json:"body_font_size"   binding:"omitempty,min=6,max=48"`
	LogoURL         string `json:"logo_url"         binding:"omitempty,url,max=500"`
	SignatureURL    string `json:"signature_url"    binding:"omitempty,url,max=500"`
	Orientation     string `json:"orientation"      binding:"omitempty,oneof=landscape portrait"`
	Layout          string `json:"layout"           binding:"omitempty,oneof=classic modern minimal"`
}

// TemplateContentPayload header/body/footer text.
type TemplateContentPayload struct {
	Header string `json:"header" binding:"max=2000"`
	Body   string `json:"body"   binding:"required,max=10000"`
	Footer string `json:"footer" binding:"max=2000"`
}

// CreateTemplateRequest POST /certificate-templates
type CreateTemplateRequest struct {
	Name        string                 `json:"name"        binding:"required,min=2,max=200"`
	Description string                 `json:"description" binding:"max=2000"`
	CourseID    *string                `json:"course_id"   binding:"omitempty,uuid"`
	IsActive    *bool                  `json:"is_active"`
	IsDefault   bool                   `json:"is_default"`
	Design      TemplateDesignPayload  `json:"design"`
	Content     TemplateContentPayload `json:"content"     binding:"required"`
}

// UpdateTemplateRequest PUT /certificate-templates/:id, all fields optional.
type UpdateTemplateRequest struct {
	Name        *string                 `json:"name"        binding:"omitempty,min=2,max=200"`
	Description *string                 `json:"description" binding:"omitempty,max=2000"`
	CourseID    *string                 `json:"course_id"   binding:"omitempty,uuid"`
	ClearCourse bool                    `json:"clear_course"`
	IsActive    *bool                   `json:"is_active"`
	IsDefault   *bool                   `json:"is_default"`
	Design      *TemplateDesignPayload  `json:"design"`
	Content     *TemplateContentPayload `json:"content"`
	Version     int                     `json:"version"     binding:"required,min=1"`
}

// TemplateListRequest GET /certificate-templates
type TemplateListRequest struct {
	PaginationRequest
	CourseID string `form:"course_id" binding:"omitempty,uuid"`
	IsActive *bool  `form:"is_active"`
	Keyword  string `form:"keyword"   binding:"max=100"`
}

// TemplateResponse template as returned by the API.
type TemplateResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	CourseID    *string                `json:"course_id,omitempty"`
	IsActive    bool                   `json:"is_active"`
	IsDefault   bool                   `json:"is_default"`
	Design      TemplateDesignPayload  `json:"design"`
	Content     TemplateContentPayload `json:"content"`
	Version     int                    `json:"version"`
	CreatedAt   string                 `json:"created_at"`
	UpdatedAt   string                 `json:"updated_at"`
}
