package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/bitfantasy/requisition/internal/requisition/lock"
	"github.com/bitfantasy/requisition/internal/requisition/storage"
	"github.com/bitfantasy/requisition/internal/requisition/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestStore is the persistence the service needs. Save must reject a
// stale version with ErrConflict.
type RequestStore interface {
	Create(ctx context.Context, pr *entity.PurchaseRequest) error
	FindByID(ctx context.Context, id string) (*entity.PurchaseRequest, error)
	Find(ctx context.Context, filter entity.RequestFilter) ([]entity.PurchaseRequest, error)
	Save(ctx context.Context, pr *entity.PurchaseRequest) error
}

// Sequence hands out request numbers.
type Sequence interface {
	NextValue(ctx context.Context, name string) (int64, error)
}

// Notifier is told about every created or transitioned request.
type Notifier interface {
	RequestChanged(pr *entity.PurchaseRequest, from entity.Status, actor entity.Actor)
}

// UploadLimits bounds the attachments accepted with one submission.
type UploadLimits struct {
	MaxFiles    int
	MaxFileSize int64
}

// RequestService runs the purchase request lifecycle.
type RequestService struct {
	store    RequestStore
	seq      Sequence
	files    storage.Store
	policy   workflow.Policy
	engine   *workflow.Engine
	logger   *zap.Logger
	locker   lock.Locker
	lockTTL  time.Duration
	notifier Notifier
	metrics  *Metrics
	limits   UploadLimits
	now      func() time.Time
}

func NewRequestService(store RequestStore, seq Sequence, files storage.Store, policy workflow.Policy, logger *zap.Logger) *RequestService {
	return &RequestService{
		store:   store,
		seq:     seq,
		files:   files,
		policy:  policy,
		engine:  workflow.NewEngine(newID, time.Now),
		logger:  logger,
		locker:  lock.Noop{},
		lockTTL: 5 * time.Second,
		limits:  UploadLimits{MaxFiles: 10, MaxFileSize: 10 << 20},
		now:     time.Now,
	}
}

func newID() string {
	return uuid.New().String()
}

// SetLocker serialises transitions on the same request.
func (s *RequestService) SetLocker(l lock.Locker, ttl time.Duration) {
	s.locker = l
	if ttl > 0 {
		s.lockTTL = ttl
	}
}

func (s *RequestService) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *RequestService) SetMetrics(m *Metrics) {
	s.metrics = m
}

func (s *RequestService) SetUploadLimits(l UploadLimits) {
	s.limits = l
}

// SetClock replaces time.Now.
func (s *RequestService) SetClock(now func() time.Time) {
	s.now = now
	s.engine = workflow.NewEngine(newID, now)
}

// Policy returns the department rules and checklist templates in effect.
func (s *RequestService) Policy() workflow.Policy {
	return s.policy
}

// CreateRequest validates a submission, stores its attachments and persists
// the new request at the creator's initial status.
func (s *RequestService) CreateRequest(ctx context.Context, input CreateRequestInput, actor entity.Actor) (*entity.PurchaseRequest, error) {
	if !workflow.CanCreate(actor.Role) {
		return nil, forbidden("Your role cannot submit purchase requests")
	}

	pr, err := s.validateSubmission(input, actor)
	if err != nil {
		return nil, err
	}

	seq, err := s.seq.NextValue(ctx, entity.RequestCounterName)
	if err != nil {
		return nil, fmt.Errorf("allocate request number: %w", err)
	}
	pr.RequestNumber = entity.FormatRequestNumber(seq)

	for _, f := range input.Files {
		att, err := s.files.Store(ctx, f)
		if err != nil {
			s.discardAttachments(pr.Attachments)
			return nil, fmt.Errorf("store attachment %s: %w", f.Name, err)
		}
		att.RequestID = pr.ID
		pr.Attachments = append(pr.Attachments, att)
	}

	if err := s.store.Create(ctx, pr); err != nil {
		s.discardAttachments(pr.Attachments)
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.metrics.requestCreated(string(actor.Role), string(pr.DocumentType))
	if s.notifier != nil {
		s.notifier.RequestChanged(pr, "", actor)
	}
	s.logger.Info("Purchase request created",
		zap.String("request_id", pr.ID),
		zap.String("request_number", pr.RequestNumber),
		zap.String("status", string(pr.Status)),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", string(actor.Role)),
		zap.String("total", pr.TotalAmount().StringFixed(2)),
	)
	return pr, nil
}

// discardAttachments removes files stored for a request that was never persisted.
func (s *RequestService) discardAttachments(atts []entity.Attachment) {
	ctx := context.Background()
	for _, att := range atts {
		if err := s.files.Delete(ctx, att.Filename); err != nil {
			s.logger.Warn("Failed to remove orphaned attachment",
				zap.String("file", att.Filename),
				zap.Error(err))
		}
	}
}

func (s *RequestService) validateSubmission(input CreateRequestInput, actor entity.Actor) (*entity.PurchaseRequest, error) {
	department := strings.TrimSpace(input.Department)
	if actor.DepartmentID != "" {
		department = actor.DepartmentID
	}

	if department == "" ||
		strings.TrimSpace(input.VendorType) == "" ||
		strings.TrimSpace(input.Currency) == "" ||
		strings.TrimSpace(input.ServiceDescription) == "" ||
		isEmptyJSON(input.LineItems) ||
		strings.TrimSpace(input.DocumentType) == "" {
		return nil, invalid("", "Missing required fields")
	}

	vendorType, ok := entity.ParseVendorType(input.VendorType)
	if !ok {
		return nil, invalid("vendor_type", "Invalid vendor type")
	}
	currency, ok := entity.ParseCurrency(input.Currency)
	if !ok {
		return nil, invalid("currency", "Invalid currency")
	}

	if actor.Role == entity.RoleRequester {
		if actor.DepartmentID == "" {
			return nil, invalid("department", "Requestor department not configured")
		}
		if !s.policy.RequesterMayFile(actor.DepartmentID) {
			return nil, invalid("department", "Requestors can only submit from allowed departments")
		}
	}

	requiresProject := s.policy.RequiresProjectDetails(department)
	project := [3]string{
		strings.TrimSpace(input.ProjectName),
		strings.TrimSpace(input.ProjectCode),
		strings.TrimSpace(input.ProjectTechnology),
	}
	if requiresProject && (project[0] == "" || project[1] == "" || project[2] == "") {
		return nil, invalid("project", "Project details are required for this department")
	}

	lineItems, err := parseLineItems(input.LineItems)
	if err != nil {
		return nil, err
	}

	documentType, ok := entity.ParseDocumentType(input.DocumentType)
	if !ok {
		return nil, invalid("document_type", "Invalid document type")
	}

	contract, err := parseContractDetails(input.ContractDetails)
	if err != nil {
		return nil, err
	}
	if documentType == entity.DocumentContract && !contract.Complete() {
		return nil, invalid("contract_details", "Contract validity dates and payment terms are required for contracts")
	}
	if documentType != entity.DocumentContract {
		contract = entity.ContractDetails{}
	}

	if err := s.validateFiles(input.Files, vendorType); err != nil {
		return nil, err
	}

	now := s.now()
	requestedAt, err := parseRequestDate(input.RequestDate, now)
	if err != nil {
		return nil, err
	}

	pr := &entity.PurchaseRequest{
		ID:                 newID(),
		Department:         department,
		VendorType:         vendorType,
		Currency:           currency,
		DocumentType:       documentType,
		ServiceDescription: strings.TrimSpace(input.ServiceDescription),
		Contract:           contract,
		RequestedAt:        requestedAt,
		Version:            1,
	}
	if requiresProject {
		pr.ProjectName, pr.ProjectCode, pr.ProjectTechnology = project[0], project[1], project[2]
	}
	for i := range lineItems {
		lineItems[i].ID = newID()
		lineItems[i].RequestID = pr.ID
	}
	pr.LineItems = lineItems
	pr.AccountingSteps = s.policy.Checklists.Build(documentType, newID)
	for i := range pr.AccountingSteps {
		pr.AccountingSteps[i].RequestID = pr.ID
	}
	s.engine.Submit(pr, actor)
	return pr, nil
}

func (s *RequestService) validateFiles(files []storage.File, vendorType entity.VendorType) error {
	if s.limits.MaxFiles > 0 && len(files) > s.limits.MaxFiles {
		return invalid("attachments", fmt.Sprintf("At most %d attachments are allowed", s.limits.MaxFiles))
	}
	var bankLetter, tpin bool
	for _, f := range files {
		if s.limits.MaxFileSize > 0 && f.Size > s.limits.MaxFileSize {
			return invalid("attachments", fmt.Sprintf("Attachment %s exceeds the %d MB limit", f.Name, s.limits.MaxFileSize>>20))
		}
		switch f.Kind {
		case entity.AttachmentBankLetter:
			bankLetter = true
		case entity.AttachmentTPINCertificate:
			tpin = true
		}
	}
	if vendorType == entity.VendorNew && !(bankLetter && tpin) {
		return invalid("attachments", "New vendors require a bank letter and a TPIN certificate")
	}
	return nil
}

// ListRequests returns the requests visible to actor, newest first.
func (s *RequestService) ListRequests(ctx context.Context, actor entity.Actor) ([]entity.PurchaseRequest, error) {
	items, err := s.store.Find(ctx, workflow.Scope(actor))
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return items, nil
}

// GetRequest loads a single request by id.
func (s *RequestService) GetRequest(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	pr, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get request %s: %w", id, err)
	}
	return pr, nil
}

// DecideRequest approves or rejects a request sitting in the actor's review queue.
func (s *RequestService) DecideRequest(ctx context.Context, id string, actor entity.Actor, input DecisionInput) (*entity.PurchaseRequest, error) {
	return s.transition(ctx, id, actor, func(pr *entity.PurchaseRequest) error {
		return s.engine.Decide(pr, actor, entity.Decision(strings.TrimSpace(input.Decision)), input.Comment)
	})
}

// UpdateChecklist marks accounting steps complete.
func (s *RequestService) UpdateChecklist(ctx context.Context, id string, actor entity.Actor, input ChecklistInput) (*entity.PurchaseRequest, error) {
	return s.transition(ctx, id, actor, func(pr *entity.PurchaseRequest) error {
		return s.engine.CompleteSteps(pr, actor, input.CompletedSteps, input.Comment)
	})
}

// UpdateStatus routes to a decision or a checklist update depending on what
// the gate permits the actor at the request's current status.
func (s *RequestService) UpdateStatus(ctx context.Context, id string, actor entity.Actor, input StatusUpdateInput) (*entity.PurchaseRequest, error) {
	return s.transition(ctx, id, actor, func(pr *entity.PurchaseRequest) error {
		action, err := workflow.Guard(actor, pr)
		if err != nil {
			return err
		}
		if action == workflow.ActionChecklist {
			return s.engine.CompleteSteps(pr, actor, input.CompletedSteps, input.Comment)
		}
		return s.engine.Decide(pr, actor, entity.Decision(strings.TrimSpace(input.Decision)), input.Comment)
	})
}

// transition performs one locked read-modify-write of a request.
func (s *RequestService) transition(ctx context.Context, id string, actor entity.Actor, apply func(*entity.PurchaseRequest) error) (*entity.PurchaseRequest, error) {
	unlock, err := s.locker.Lock(ctx, id, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock request %s: %w", id, err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release request lock", zap.String("request_id", id), zap.Error(err))
		}
	}()

	pr, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	from := pr.Status

	if err := apply(pr); err != nil {
		s.refused(err)
		s.logger.Info("Transition refused",
			zap.String("request_id", id),
			zap.String("status", string(from)),
			zap.String("actor_id", actor.ID),
			zap.String("actor_role", string(actor.Role)),
			zap.String("reason", err.Error()),
		)
		return nil, err
	}

	if err := s.store.Save(ctx, pr); err != nil {
		if errors.Is(err, ErrConflict) {
			s.metrics.refused("conflict")
		}
		return nil, fmt.Errorf("save request %s: %w", id, err)
	}

	s.metrics.transitioned(string(from), string(pr.Status), string(actor.Role))
	if s.notifier != nil {
		s.notifier.RequestChanged(pr, from, actor)
	}
	s.logger.Info("Purchase request transitioned",
		zap.String("request_id", pr.ID),
		zap.String("request_number", pr.RequestNumber),
		zap.String("from", string(from)),
		zap.String("to", string(pr.Status)),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", string(actor.Role)),
	)
	return pr, nil
}

func (s *RequestService) refused(err error) {
	switch {
	case errors.Is(err, ErrValidation):
		s.metrics.refused("validation")
	case errors.Is(err, ErrForbidden):
		s.metrics.refused("forbidden")
	default:
		s.metrics.refused("other")
	}
}

// OpenAttachment streams a stored file. Downloads (as opposed to inline
// viewing) are limited to the CFO and accounting analysts.
func (s *RequestService) OpenAttachment(ctx context.Context, actor entity.Actor, filename string, download bool) (io.ReadCloser, error) {
	if download && actor.Role != entity.RoleCFO && actor.Role != entity.RoleAnalyst {
		return nil, forbidden("Only the CFO and accounting analysts can download attachments")
	}
	rc, err := s.files.Fetch(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return rc, nil
}
