package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/bitfantasy/requisition/internal/requisition/service"
	"github.com/bitfantasy/requisition/internal/requisition/sse"
	"github.com/bitfantasy/requisition/internal/requisition/storage"
	"github.com/bitfantasy/requisition/internal/requisition/testutil"
	"github.com/bitfantasy/requisition/internal/requisition/workflow"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	requester = entity.Actor{ID: "u-req", Name: "Rita", Role: entity.RoleRequester, DepartmentID: "Environment"}
	hod       = entity.Actor{ID: "u-hod", Name: "Hank", Role: entity.RoleHOD, DepartmentID: "Environment"}
	cfo       = entity.Actor{ID: "u-cfo", Name: "Cleo", Role: entity.RoleCFO}
	ceo       = entity.Actor{ID: "u-ceo", Name: "Ezra", Role: entity.RoleCEO}
	analyst   = entity.Actor{ID: "u-ana", Name: "Ana", Role: entity.RoleAnalyst}
)

type mapStore struct {
	mu    sync.Mutex
	items map[string]entity.PurchaseRequest
	order []string
}

func (m *mapStore) Create(ctx context.Context, pr *entity.PurchaseRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr.Version = 1
	m.items[pr.ID] = *pr
	m.order = append(m.order, pr.ID)
	return nil
}

func (m *mapStore) FindByID(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.items[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	pr.ApprovalHistory = slices.Clone(pr.ApprovalHistory)
	pr.AccountingSteps = slices.Clone(pr.AccountingSteps)
	return &pr, nil
}

func (m *mapStore) Find(ctx context.Context, filter entity.RequestFilter) ([]entity.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.PurchaseRequest
	for i := len(m.order) - 1; i >= 0; i-- {
		pr := m.items[m.order[i]]
		if workflow.Matches(filter, &pr) {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (m *mapStore) Save(ctx context.Context, pr *entity.PurchaseRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[pr.ID].Version != pr.Version {
		return service.ErrConflict
	}
	pr.Version++
	m.items[pr.ID] = *pr
	return nil
}

type counter struct {
	mu sync.Mutex
	n  int64
}

func (c *counter) NextValue(ctx context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *sse.Hub) {
	t.Helper()
	files, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	store := &mapStore{items: make(map[string]entity.PurchaseRequest)}
	svc := service.NewRequestService(store, &counter{}, files, workflow.DefaultPolicy(), zap.NewNop())
	hub := sse.NewHub(zap.NewNop())
	svc.SetNotifier(hub)

	r := testutil.SetupRouter()
	NewHandlers(svc, hub, zap.NewNop()).RegisterRoutes(testutil.AuthGroup(r, "/api/v1"))
	return r, hub
}

func invoicePayload() map[string]interface{} {
	return map[string]interface{}{
		"department":          "Environment",
		"vendor_type":         "existing",
		"currency":            "ZMW",
		"document_type":       "invoice",
		"service_description": "Borehole water testing",
		"line_items": []map[string]interface{}{
			{"description": "Sampling", "unit_price": "1250.50", "quantity": 2},
		},
	}
}

func data(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := testutil.ParseResponse(w)
	d, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response carries no object: %s", w.Body.String())
	return d
}

func createRequest(t *testing.T, r *gin.Engine, actor entity.Actor) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/requests", invoicePayload(), testutil.GenerateTestToken(actor))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return data(t, w)
}

func TestCreate_JSON(t *testing.T) {
	r, _ := setupRouter(t)

	pr := createRequest(t, r, requester)
	assert.Equal(t, "PR-000001", pr["request_number"])
	assert.Equal(t, string(entity.StatusHODReview), pr["status"])
	assert.Equal(t, "u-req", pr["requester_id"])
}

func TestCreate_RequiresToken(t *testing.T) {
	r, _ := setupRouter(t)

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/requests", invoicePayload(), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreate_RoleGate(t *testing.T) {
	r, _ := setupRouter(t)

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/requests", invoicePayload(), testutil.GenerateTestToken(analyst))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreate_ValidationError(t *testing.T) {
	r, _ := setupRouter(t)
	payload := invoicePayload()
	payload["currency"] = "EUR"

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/requests", payload, testutil.GenerateTestToken(requester))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid currency", testutil.ParseResponse(w)["message"])
}

func TestCreate_MultipartNewVendor(t *testing.T) {
	r, _ := setupRouter(t)
	fields := map[string]string{
		"department":          "Environment",
		"vendor_type":         "new",
		"currency":            "USD",
		"document_type":       "quote",
		"service_description": "Air quality monitors",
		"line_items":          `[{"description":"Monitor","unit_price":"400","quantity":3}]`,
	}
	token := testutil.GenerateTestToken(requester)

	w := testutil.DoMultipart(r, http.MethodPost, "/api/v1/requests", fields, []testutil.FormFile{
		{Field: "attachments", Name: "quote.pdf", Content: []byte("quote")},
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "New vendors require a bank letter and a TPIN certificate", testutil.ParseResponse(w)["message"])

	w = testutil.DoMultipart(r, http.MethodPost, "/api/v1/requests", fields, []testutil.FormFile{
		{Field: "attachments", Name: "quote.pdf", Content: []byte("quote")},
		{Field: "bank_letter", Name: "bank.pdf", Content: []byte("bank")},
		{Field: "tpin_certificate", Name: "tpin.pdf", Content: []byte("tpin")},
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	attachments, ok := data(t, w)["attachments"].([]interface{})
	require.True(t, ok)
	require.Len(t, attachments, 3)
	var kinds []string
	for _, a := range attachments {
		kinds = append(kinds, a.(map[string]interface{})["kind"].(string))
	}
	assert.Equal(t, []string{"supporting", "bank_letter", "tpin_certificate"}, kinds)
}

func TestFormFiles_FieldOrder(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, field := range []string{"tpin_certificate", "bank_letter", "attachments"} {
		part, _ := mw.CreateFormFile(field, field+".pdf")
		part.Write([]byte(field))
	}
	mw.Close()
	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	defer form.RemoveAll()

	for i := 0; i < 20; i++ {
		files, closeAll, err := formFiles(form)
		require.NoError(t, err)
		closeAll()
		require.Len(t, files, 3)
		assert.Equal(t, entity.AttachmentSupporting, files[0].Kind)
		assert.Equal(t, entity.AttachmentBankLetter, files[1].Kind)
		assert.Equal(t, entity.AttachmentTPINCertificate, files[2].Kind)
	}
}

func TestCreate_MultipartUnreadableLineItems(t *testing.T) {
	r, _ := setupRouter(t)
	fields := map[string]string{
		"department":          "Environment",
		"vendor_type":         "existing",
		"currency":            "ZMW",
		"document_type":       "invoice",
		"service_description": "Sampling",
		"line_items":          "not json",
	}

	w := testutil.DoMultipart(r, http.MethodPost, "/api/v1/requests", fields, nil, testutil.GenerateTestToken(requester))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unable to read line items payload", testutil.ParseResponse(w)["message"])
}

func TestDecisionFlow(t *testing.T) {
	r, _ := setupRouter(t)
	pr := createRequest(t, r, requester)
	path := "/api/v1/requests/" + pr["id"].(string)

	// CFO cannot act while the request waits for the HOD
	w := testutil.DoRequest(r, http.MethodPost, path+"/decision",
		map[string]string{"decision": "approved"}, testutil.GenerateTestToken(cfo))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "CFOs review the CFO queue", testutil.ParseResponse(w)["message"])

	w = testutil.DoRequest(r, http.MethodPost, path+"/decision",
		map[string]string{"decision": "approved"}, testutil.GenerateTestToken(hod))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, string(entity.StatusCFOReview), data(t, w)["status"])

	w = testutil.DoRequest(r, http.MethodPost, path+"/decision",
		map[string]string{"decision": "rejected"}, testutil.GenerateTestToken(cfo))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Comment is required when rejecting a request", testutil.ParseResponse(w)["message"])

	w = testutil.DoRequest(r, http.MethodPatch, path+"/status",
		map[string]string{"decision": "rejected", "comment": "budget exceeded"}, testutil.GenerateTestToken(cfo))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := data(t, w)
	assert.Equal(t, string(entity.StatusRejected), got["status"])
	history := got["approval_history"].([]interface{})
	last := history[len(history)-1].(map[string]interface{})
	assert.Equal(t, string(entity.StatusCFOReview), last["stage"])
	assert.Equal(t, "budget exceeded", last["comment"])
}

func TestChecklistFlow(t *testing.T) {
	r, _ := setupRouter(t)
	pr := createRequest(t, r, ceo)
	require.Equal(t, string(entity.StatusAccountingProcessing), pr["status"])
	path := "/api/v1/requests/" + pr["id"].(string)

	var ids []string
	for _, s := range pr["accounting_steps"].([]interface{}) {
		ids = append(ids, s.(map[string]interface{})["id"].(string))
	}
	require.NotEmpty(t, ids)
	token := testutil.GenerateTestToken(analyst)

	w := testutil.DoRequest(r, http.MethodPost, path+"/checklist",
		map[string]interface{}{"completed_steps": ids[:1]}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, string(entity.StatusAccountingProcessing), data(t, w)["status"])

	w = testutil.DoRequest(r, http.MethodPost, path+"/checklist",
		map[string]interface{}{"completed_steps": ids}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := data(t, w)
	assert.Equal(t, string(entity.StatusBankLoaded), got["status"])
	assert.Equal(t, "u-ana", got["loaded_by_analyst_id"])

	w = testutil.DoRequest(r, http.MethodPost, path+"/checklist",
		map[string]interface{}{"completed_steps": ids}, testutil.GenerateTestToken(hod))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListAndGet(t *testing.T) {
	r, _ := setupRouter(t)
	own := createRequest(t, r, requester)
	createRequest(t, r, cfo)

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/requests", nil, testutil.GenerateTestToken(requester))
	require.Equal(t, http.StatusOK, w.Code)
	list := testutil.ParseResponse(w)["data"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, own["id"], list[0].(map[string]interface{})["id"])

	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/requests", nil, testutil.GenerateTestToken(ceo))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testutil.ParseResponse(w)["data"].([]interface{}), 2)

	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/requests", nil, testutil.GenerateTestToken(analyst))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, testutil.ParseResponse(w)["data"])

	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/requests/"+own["id"].(string), nil, testutil.GenerateTestToken(hod))
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/requests/missing", nil, testutil.GenerateTestToken(hod))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExport(t *testing.T) {
	r, _ := setupRouter(t)
	createRequest(t, r, requester)

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/requests/export", nil, testutil.GenerateTestToken(requester))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestReference(t *testing.T) {
	r, _ := setupRouter(t)

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/reference", nil, testutil.GenerateTestToken(requester))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, data(t, w))
}

func TestOpenFile(t *testing.T) {
	r, _ := setupRouter(t)
	fields := map[string]string{
		"department":          "Environment",
		"vendor_type":         "existing",
		"currency":            "ZMW",
		"document_type":       "invoice",
		"service_description": "Sampling",
		"line_items":          `[{"description":"Sampling","unit_price":"10","quantity":1}]`,
	}
	w := testutil.DoMultipart(r, http.MethodPost, "/api/v1/requests", fields, []testutil.FormFile{
		{Field: "attachments", Name: "invoice.txt", Content: []byte("invoice body")},
	}, testutil.GenerateTestToken(requester))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	att := data(t, w)["attachments"].([]interface{})[0].(map[string]interface{})
	path := "/api/v1/files/" + att["filename"].(string)

	w = testutil.DoRequest(r, http.MethodGet, path, nil, testutil.GenerateTestToken(hod))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "invoice body", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inline")

	w = testutil.DoRequest(r, http.MethodGet, path+"?download=true", nil, testutil.GenerateTestToken(hod))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(r, http.MethodGet, path+"?download=true", nil, testutil.GenerateTestToken(cfo))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/files/nothing-here.pdf", nil, testutil.GenerateTestToken(cfo))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotifiesConnectedClients(t *testing.T) {
	r, hub := setupRouter(t)
	client := &sse.Client{ID: "hod-1", Actor: hod, Events: make(chan sse.Event, 4)}
	hub.Register(client)
	defer hub.Unregister(client.ID)

	createRequest(t, r, requester)

	select {
	case ev := <-client.Events:
		assert.Equal(t, "request_update", ev.EventType)
	default:
		t.Fatal("no event delivered to the HOD")
	}
}
