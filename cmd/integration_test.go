package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/bookdepot/stock-service/api"
	"github.com/bookdepot/stock-service/config"
	"github.com/bookdepot/stock-service/core/bundle"
	"github.com/bookdepot/stock-service/core/fulfillment"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/bookdepot/stock-service/db"
	"github.com/bookdepot/stock-service/db/bundlerepo"
	"github.com/bookdepot/stock-service/db/fulfillrepo"
	"github.com/bookdepot/stock-service/db/ledgerrepo"
	"github.com/bookdepot/stock-service/db/usrrepo"
	"github.com/bookdepot/stock-service/queue"
	"github.com/bookdepot/stock-service/testutil"
)

var (
	cfg *config.Config

	asAdmin  = testutil.RequestOptions{Username: "intadmin", Password: "integrationpw"}
	asSchool = testutil.RequestOptions{Username: "intschool", Password: "integrationpw"}
)

// TestMain stands the whole service up against a live postgres instance,
// the same wiring as main minus rabbitmq. Set INTEGRATION to run.
func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION") == "" {
		log.Info().Msg("set INTEGRATION to run integration tests against a live database")
		os.Exit(0)
	}

	ctx := context.Background()

	cfg = config.LoadDefaults()
	cfg.Port = "8181"
	cfg.Db.Migrate = true
	cfg.RabbitMQ.Mock = true

	configLogging(cfg)

	dbPool, err := db.ConnectDb(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to the database")
	}

	q := queue.NewMockQueue()
	policy := user.ScopePolicy{}

	userService := user.NewService(usrrepo.NewPostgresRepo(dbPool))
	bundleService := bundle.NewService(bundlerepo.NewPostgresRepo(dbPool), policy)
	stockService := ledger.NewService(ledgerrepo.NewPostgresRepo(dbPool), q, bundleService, policy)
	fulfillmentService := fulfillment.NewService(fulfillrepo.NewPostgresRepo(dbPool), q, policy)

	seedUsers(ctx, userService)

	api.ConfigureMetrics()
	r := api.ConfigureRouter(cfg, stockService, stockService, bundleService, fulfillmentService, userService)

	go func() {
		log.Fatal().Err(http.ListenAndServe(":"+cfg.Port, r)).Send()
	}()

	waitForReady()
	os.Exit(m.Run())
}

func seedUsers(ctx context.Context, users user.Service) {
	seed := []user.CreateUserRequest{
		{Username: "intadmin", Role: user.RoleAdmin, PlainTextPassword: "integrationpw"},
		{Username: "intschool", Role: user.RoleSchool, SchoolID: 1, PlainTextPassword: "integrationpw"},
	}
	for _, req := range seed {
		if _, err := users.Create(ctx, req); err != nil {
			log.Info().Str("username", req.Username).Err(err).Msg("user already seeded")
		}
	}
}

func waitForReady() {
	for {
		res, err := http.Get(host() + "/health")
		if err == nil && res.StatusCode == http.StatusOK {
			break
		}
		log.Info().Msg("application not ready, sleeping")
		time.Sleep(1 * time.Second)
	}
}

func TestCreateBook(t *testing.T) {
	tests := []struct {
		name string
		book ledger.Book

		wantStatusCode int
	}{
		{
			name:           "valid request",
			book:           ledger.Book{ISBN: "it-" + uuid.NewString(), Title: "The Iliad", Subject: "Classics"},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "missing title",
			book:           ledger.Book{ISBN: "it-" + uuid.NewString()},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing isbn",
			book:           ledger.Book{Title: "The Iliad"},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res := testutil.Put(host()+"/api/v1/stock", api.CreateBookRequest{Book: &test.book}, t, asAdmin)

			if res.StatusCode != test.wantStatusCode {
				t.Errorf("status code got=%d want=%d", res.StatusCode, test.wantStatusCode)
			}
		})
	}
}

// TestStockFlow walks a title from receipt through reservation and checks the
// availability projection along the way. A fresh isbn keeps runs independent.
func TestStockFlow(t *testing.T) {
	isbn := "it-" + uuid.NewString()
	createBook(isbn, t)
	receiveBatch(isbn, 10, t)

	if available := stockAvailable(isbn, t); available != 10 {
		t.Errorf("available after receipt got=%d want=%d", available, 10)
	}

	reserve := api.ReservationRequest{
		ReserveRequest: &ledger.ReserveRequest{Quantity: 2, Consumer: ledger.ConsumerRef{Kind: ledger.ConsumerSchool, ID: 1}},
	}
	res := testutil.Put(host()+"/api/v1/stock/"+isbn+"/reservation", reserve, t, asSchool)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("failed to reserve got=%d", res.StatusCode)
	}
	entry := api.EntryResponse{}
	testutil.Unmarshal(res, &entry, t)
	if entry.Kind != ledger.KindReserve {
		t.Errorf("entry kind got=%s want=%s", entry.Kind, ledger.KindReserve)
	}

	res = get(host()+"/api/v1/availability?consumerKind=SCHOOL&consumerId=1&isbn="+isbn, t, asSchool)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("failed to fetch availability got=%d", res.StatusCode)
	}
	availability := []ledger.TitleAvailability{}
	testutil.Unmarshal(res, &availability, t)
	if len(availability) != 1 {
		t.Fatalf("availability rows got=%d want=%d", len(availability), 1)
	}
	if availability[0].Available != 10 {
		t.Errorf("available got=%d want=%d", availability[0].Available, 10)
	}
	if availability[0].Reserved != 2 {
		t.Errorf("reserved got=%d want=%d", availability[0].Reserved, 2)
	}
	if availability[0].Free != 8 {
		t.Errorf("free got=%d want=%d", availability[0].Free, 8)
	}
}

// TestFulfillmentFlow issues stock, takes a return, then cancels, and expects
// every unit to find its way back to the batch it came from.
func TestFulfillmentFlow(t *testing.T) {
	isbn := "it-" + uuid.NewString()
	createBook(isbn, t)
	receiveBatch(isbn, 20, t)

	req := fulfillment.FulfillmentRequest{
		RequestID:  uuid.NewString(),
		Consumer:   ledger.ConsumerRef{Kind: ledger.ConsumerSchool, ID: 1},
		Lines:      []fulfillment.DemandLine{{ISBN: isbn, Title: "Integration Paperback", Quantity: 3, UnitPrice: decimal.NewFromInt(12)}},
		Multiplier: 1,
	}
	res := testutil.Post(host()+"/api/v1/fulfillment", req, t, asSchool)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("failed to fulfill got=%d", res.StatusCode)
	}
	record := api.RecordResponse{}
	testutil.Unmarshal(res, &record, t)
	if record.Status != fulfillment.StatusFulfilled {
		t.Errorf("status got=%s want=%s", record.Status, fulfillment.StatusFulfilled)
	}
	if len(record.Lines) != 1 || record.Lines[0].Achieved != 3 {
		t.Fatalf("unexpected fulfillment lines got=%+v", record.Lines)
	}
	if available := stockAvailable(isbn, t); available != 17 {
		t.Errorf("available after fulfillment got=%d want=%d", available, 17)
	}

	id := strconv.FormatUint(record.ID, 10)

	returnReq := api.ReturnRequest{Items: []fulfillment.ReturnItem{{ISBN: isbn, Quantity: 1}}}
	res = testutil.Post(host()+"/api/v1/fulfillment/"+id+"/returns", returnReq, t, asSchool)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("failed to return got=%d", res.StatusCode)
	}
	returns := []fulfillment.Return{}
	testutil.Unmarshal(res, &returns, t)
	if len(returns) != 1 || returns[0].Quantity != 1 {
		t.Fatalf("unexpected returns got=%+v", returns)
	}
	if !returns[0].Amount.Equal(decimal.NewFromInt(12)) {
		t.Errorf("return amount got=%s want=%s", returns[0].Amount, "12")
	}
	if available := stockAvailable(isbn, t); available != 18 {
		t.Errorf("available after return got=%d want=%d", available, 18)
	}

	res = testutil.Post(host()+"/api/v1/fulfillment/"+id+"/cancel", nil, t, asSchool)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("failed to cancel got=%d", res.StatusCode)
	}
	credits := []fulfillment.BatchCredit{}
	testutil.Unmarshal(res, &credits, t)
	var credited int64
	for _, c := range credits {
		credited += c.Quantity
	}
	if credited != 2 {
		t.Errorf("credited quantity got=%d want=%d", credited, 2)
	}
	if available := stockAvailable(isbn, t); available != 20 {
		t.Errorf("available after cancel got=%d want=%d", available, 20)
	}
}

func createBook(isbn string, t *testing.T) {
	book := api.CreateBookRequest{Book: &ledger.Book{ISBN: isbn, Title: "Integration Paperback", Subject: "Testing"}}
	res := testutil.Put(host()+"/api/v1/stock", book, t, asAdmin)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("failed to create book got=%d", res.StatusCode)
	}
}

func receiveBatch(isbn string, quantity int64, t *testing.T) {
	receipt := api.ReceiveBatchRequest{
		ReceiptRequest: &ledger.ReceiptRequest{RequestID: uuid.NewString(), Quantity: quantity},
	}
	res := testutil.Put(host()+"/api/v1/stock/"+isbn+"/receipt", receipt, t, asAdmin)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("failed to receive batch got=%d", res.StatusCode)
	}
	batch := api.BatchResponse{}
	testutil.Unmarshal(res, &batch, t)
	if batch.Available != quantity {
		t.Fatalf("batch available got=%d want=%d", batch.Available, quantity)
	}
}

func stockAvailable(isbn string, t *testing.T) int64 {
	res := get(host()+"/api/v1/stock/"+isbn, t, asSchool)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("failed to fetch stock got=%d", res.StatusCode)
	}
	stock := api.BookStockResponse{}
	testutil.Unmarshal(res, &stock, t)
	return stock.Available
}

func get(url string, t *testing.T, op ...testutil.RequestOptions) *http.Response {
	return testutil.SendRequest(http.MethodGet, url, nil, t, op...)
}

func host() string {
	return "http://localhost:" + cfg.Port
}
