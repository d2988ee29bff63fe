package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/bitfantasy/requisition/internal/requisition/export"
	"github.com/bitfantasy/requisition/internal/requisition/service"
	"github.com/bitfantasy/requisition/internal/requisition/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 附件表单字段，按存储顺序
var attachmentFields = []struct {
	field string
	kind  entity.AttachmentKind
}{
	{"attachments", entity.AttachmentSupporting},
	{"bank_letter", entity.AttachmentBankLetter},
	{"tpin_certificate", entity.AttachmentTPINCertificate},
}

// RequestHandler 采购申请处理器
type RequestHandler struct {
	svc    *service.RequestService
	logger *zap.Logger
}

func NewRequestHandler(svc *service.RequestService, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{svc: svc, logger: logger}
}

// Create 提交采购申请
// POST /api/v1/requests (multipart/form-data or JSON)
func (h *RequestHandler) Create(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		return
	}

	var input service.CreateRequestInput
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			BadRequest(c, "Unable to read form: "+err.Error())
			return
		}
		input = formInput(form)
		files, closeAll, err := formFiles(form)
		defer closeAll()
		if err != nil {
			InternalError(c, "Failed to read uploaded file")
			return
		}
		input.Files = files
	} else if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	pr, err := h.svc.CreateRequest(c.Request.Context(), input, actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	Created(c, pr)
}

func formInput(form *multipart.Form) service.CreateRequestInput {
	get := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return service.CreateRequestInput{
		Department:         get("department"),
		ProjectName:        get("project_name"),
		ProjectCode:        get("project_code"),
		ProjectTechnology:  get("project_technology"),
		VendorType:         get("vendor_type"),
		Currency:           get("currency"),
		DocumentType:       get("document_type"),
		ServiceDescription: get("service_description"),
		LineItems:          formJSON(get("line_items")),
		ContractDetails:    formJSON(get("contract_details")),
		RequestDate:        get("request_date"),
	}
}

// formJSON keeps valid JSON text as is and quotes anything else, so the
// service reports it as an unreadable payload.
func formJSON(v string) json.RawMessage {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if json.Valid([]byte(v)) {
		return json.RawMessage(v)
	}
	quoted, _ := json.Marshal(v)
	return quoted
}

func formFiles(form *multipart.Form) ([]storage.File, func(), error) {
	var (
		files   []storage.File
		closers []func() error
	)
	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}
	for _, af := range attachmentFields {
		for _, fh := range form.File[af.field] {
			src, err := fh.Open()
			if err != nil {
				return nil, closeAll, fmt.Errorf("open %s: %w", fh.Filename, err)
			}
			closers = append(closers, src.Close)
			files = append(files, storage.File{
				Name:     fh.Filename,
				MimeType: fh.Header.Get("Content-Type"),
				Size:     fh.Size,
				Kind:     af.kind,
				Reader:   src,
			})
		}
	}
	return files, closeAll, nil
}

// List 获取当前用户可见的申请列表
// GET /api/v1/requests
func (h *RequestHandler) List(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		return
	}
	items, err := h.svc.ListRequests(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if items == nil {
		items = []entity.PurchaseRequest{}
	}
	Success(c, items)
}

// Get 获取申请详情
// GET /api/v1/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	pr, err := h.svc.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	Success(c, pr)
}

// UpdateStatus 按角色执行审批或会计清单更新
// PATCH /api/v1/requests/:id/status
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		return
	}
	var input service.StatusUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	pr, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), actor, input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	Success(c, pr)
}

// Decide 审批（通过/驳回）
// POST /api/v1/requests/:id/decision
func (h *RequestHandler) Decide(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		return
	}
	var input service.DecisionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	pr, err := h.svc.DecideRequest(c.Request.Context(), c.Param("id"), actor, input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	Success(c, pr)
}

// UpdateChecklist 更新会计清单
// POST /api/v1/requests/:id/checklist
func (h *RequestHandler) UpdateChecklist(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		return
	}
	var input service.ChecklistInput
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	pr, err := h.svc.UpdateChecklist(c.Request.Context(), c.Param("id"), actor, input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	Success(c, pr)
}

// Export 导出可见申请为Excel
// GET /api/v1/requests/export
func (h *RequestHandler) Export(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		return
	}
	items, err := h.svc.ListRequests(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteRequests(&buf, items); err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("purchase-requests-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// Reference 获取表单参考数据
// GET /api/v1/reference
func (h *RequestHandler) Reference(c *gin.Context) {
	Success(c, h.svc.Policy().Reference())
}
