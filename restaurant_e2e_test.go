package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

// RestaurantSuite drives the whole API the way the floor staff would.
// Staff are inserted directly; login is rate limited to five attempts.
type RestaurantSuite struct {
	suite.Suite
	db     *gorm.DB
	r      *gin.Engine
	tokens map[string]string
}

func TestRestaurantSuite(t *testing.T) {
	suite.Run(t, new(RestaurantSuite))
}

func (s *RestaurantSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	utils.SilenceLoggers()

	db, err := gorm.Open(sqlite.Open("file:e2e?mode=memory&cache=shared"),
		&gorm.Config{
			Logger:  logger.Default.LogMode(logger.Silent),
			NowFunc: func() time.Time { return time.Now().UTC() },
		})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(database.Migrate(db))

	s.db = db
	s.r = router.SetupRouter(db, services.New(db, services.Options{}), router.Options{Hub: kds.NewHub()})
	s.tokens = map[string]string{}
	for _, role := range []string{models.RoleGarcom, models.RoleCaixa, models.RoleCozinha, models.RoleGerente} {
		s.tokens[role] = s.loginAs(role)
	}
}

func (s *RestaurantSuite) TearDownTest() {
	sqlDB, _ := s.db.DB()
	sqlDB.Close()
}

func (s *RestaurantSuite) loginAs(role string) string {
	email := role + "@restaurante.local"
	hashed, err := bcrypt.GenerateFromPassword([]byte("senha123"), bcrypt.MinCost)
	s.Require().NoError(err)
	s.Require().NoError(s.db.Create(&models.User{
		Name: role, Email: email, Password: string(hashed), Role: role, Active: true,
	}).Error)

	w, env := s.call("", http.MethodPost, "/login", map[string]string{"email": email, "password": "senha123"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	s.decode(env, &login)
	return login.Token
}

func (s *RestaurantSuite) call(token, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "application/pdf" && w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *RestaurantSuite) decode(env envelope, v interface{}) {
	s.Require().NoError(json.Unmarshal(env.Data, v), string(env.Data))
}

func id(v uint) string { return strconv.FormatUint(uint64(v), 10) }

func (s *RestaurantSuite) TestTableOrderPaidReleasesTable() {
	t := s.T()
	manager, waiter, cashier, cook := s.tokens[models.RoleGerente], s.tokens[models.RoleGarcom],
		s.tokens[models.RoleCaixa], s.tokens[models.RoleCozinha]

	w, env := s.call(manager, http.MethodPost, "/api/tables", map[string]int{"number": 5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var table models.Table
	s.decode(env, &table)

	w, env = s.call(manager, http.MethodPost, "/api/admin/products", map[string]string{"name": "Burger", "price": "28.90"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var burger models.Product
	s.decode(env, &burger)

	w, env = s.call(waiter, http.MethodPost, "/api/orders", map[string]interface{}{"table_id": table.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	s.decode(env, &order)

	w, env = s.call(waiter, http.MethodGet, "/api/tables/"+id(table.ID), nil)
	s.decode(env, &table)
	assert.Equal(t, models.TableOcupada, table.Status)
	require.NotNil(t, table.CurrentOrderID)
	assert.Equal(t, order.ID, *table.CurrentOrderID)

	w, env = s.call(waiter, http.MethodPost, "/api/orders/"+id(order.ID)+"/items",
		map[string]interface{}{"product_id": burger.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var added struct {
		Item  models.OrderItem `json:"item"`
		Order models.Order     `json:"order"`
	}
	s.decode(env, &added)
	assert.True(t, decimal.RequireFromString("57.80").Equal(added.Order.Total), added.Order.Total.String())

	// the cashier has no business in the kitchen
	w, _ = s.call(cashier, http.MethodPatch, "/api/order-items/"+id(added.Item.ID)+"/status", map[string]string{"status": "pronto"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	for _, st := range []string{"preparando", "pronto"} {
		w, _ = s.call(cook, http.MethodPatch, "/api/order-items/"+id(added.Item.ID)+"/status", map[string]string{"status": st})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w, env = s.call(waiter, http.MethodGet, "/api/orders/"+id(order.ID)+"/progress", nil)
	var progress struct {
		Percent float64 `json:"percent"`
	}
	s.decode(env, &progress)
	assert.Equal(t, 100.0, progress.Percent)

	w, env = s.call(waiter, http.MethodPost, "/api/tables/"+id(table.ID)+"/close", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "payment_not_confirmed", env.Code)

	w, _ = s.call(waiter, http.MethodPost, "/api/orders/"+id(order.ID)+"/payments",
		map[string]string{"amount": "57.80", "method": "pix"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.call(cashier, http.MethodPost, "/api/orders/"+id(order.ID)+"/payments",
		map[string]string{"amount": "57.80", "method": "pix"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = s.call(cashier, http.MethodPatch, "/api/orders/"+id(order.ID)+"/status", map[string]string{"status": "pago"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.call(waiter, http.MethodGet, "/api/tables/"+id(table.ID), nil)
	s.decode(env, &table)
	assert.Equal(t, models.TableLivre, table.Status)
	assert.Nil(t, table.CurrentOrderID)

	w, env = s.call(cashier, http.MethodGet, "/api/cashier/summary", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var day struct {
		Pix   decimal.Decimal `json:"pix"`
		Total decimal.Decimal `json:"total"`
	}
	s.decode(env, &day)
	assert.True(t, decimal.RequireFromString("57.80").Equal(day.Pix), day.Pix.String())
	assert.True(t, day.Pix.Equal(day.Total))

	w, env = s.call(manager, http.MethodGet, "/api/admin/audit?entity_type=order&entity_id="+id(order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []models.AuditLog
	s.decode(env, &logs)
	assert.NotEmpty(t, logs)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+id(order.ID)+"/bill.pdf", nil)
	req.Header.Set("Authorization", "Bearer "+cashier)
	pdf := httptest.NewRecorder()
	s.r.ServeHTTP(pdf, req)
	assert.Equal(t, http.StatusOK, pdf.Code)
	assert.Equal(t, "application/pdf", pdf.Header().Get("Content-Type"))
}

func (s *RestaurantSuite) TestRoutesRequireAuth() {
	w, _ := s.call("", http.MethodGet, "/api/orders", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w, _ = s.call(s.tokens[models.RoleCozinha], http.MethodGet, "/api/admin/settings", nil)
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.call(s.tokens[models.RoleCozinha], http.MethodGet, "/api/kds/orders", nil)
	s.Equal(http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	s.r.ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get("X-Request-ID"))
}

func (s *RestaurantSuite) TestSplitBillAcrossGuests() {
	t := s.T()
	manager, cashier := s.tokens[models.RoleGerente], s.tokens[models.RoleCaixa]

	_, env := s.call(manager, http.MethodPost, "/api/admin/products", map[string]string{"name": "Rodízio", "price": "100.00"})
	var product models.Product
	s.decode(env, &product)

	_, env = s.call(manager, http.MethodPost, "/api/orders", map[string]string{"channel": "retirada"})
	var order models.Order
	s.decode(env, &order)
	s.call(manager, http.MethodPost, "/api/orders/"+id(order.ID)+"/items",
		map[string]interface{}{"product_id": product.ID, "quantity": 1})

	w, env := s.call(cashier, http.MethodPost, "/api/orders/"+id(order.ID)+"/splits", map[string]int{"count": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var splits []models.PaymentSplit
	s.decode(env, &splits)
	require.Len(t, splits, 3)

	sum := decimal.Zero
	for _, sp := range splits {
		sum = sum.Add(sp.Amount)
		w, _ = s.call(cashier, http.MethodPost, "/api/splits/"+id(sp.ID)+"/pay", map[string]string{"method": "cartao"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.True(t, decimal.RequireFromString("100.00").Equal(sum))
	assert.True(t, decimal.RequireFromString("33.34").Equal(splits[2].Amount))
}
