package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/stocktrack_backend/config"
	"bitbucket.org/mmdatafocus/stocktrack_backend/models"
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
	"github.com/shopspring/decimal"
)

// End-to-end auto-ticket run against real MySQL + Redis containers:
// seed a business with a main and a branch warehouse, drive one item red
// and one orange, run the health check twice and assert the ticket set
// does not grow on the second run.
func TestStockHealthCheckCreatesTicketsOnce(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME_2", "stocktrack_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Migrate schema (in a fresh DB).
	models.MigrateTable()

	// Model history hooks require user context.
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetUsernameInContext(ctx, "test@local")

	biz, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:  "Test Biz",
		Email: "owner@test.local",
	})
	if err != nil {
		t.Fatalf("CreateBusiness: %v", err)
	}
	businessID := biz.ID.String()
	ctx = utils.SetBusinessIdInContext(ctx, businessID)
	ctx = utils.SetIsAdminInContext(ctx, true)

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}
	var main models.Warehouse
	if err := db.WithContext(ctx).Where("business_id = ? AND name = ?", businessID, "Main Warehouse").First(&main).Error; err != nil {
		t.Fatalf("fetch main warehouse: %v", err)
	}
	if main.IsMain == nil || !*main.IsMain {
		t.Fatalf("default warehouse is not flagged as main")
	}

	branch, err := models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "Branch East"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}

	seed := []struct {
		itemId      string
		warehouseId int
		qty         int64
	}{
		{"FLOUR-25KG", main.ID, 100},
		{"FLOUR-25KG", branch.ID, 5},   // 5%  -> red, urgent ticket
		{"SUGAR-10KG", main.ID, 100},
		{"SUGAR-10KG", branch.ID, 50},  // 50% -> orange, pending ticket
		{"YEAST-500G", main.ID, 100},
		{"YEAST-500G", branch.ID, 80},  // 80% -> green, no ticket
	}
	for _, s := range seed {
		if _, err := models.CreateStockItem(ctx, &models.NewStockItem{
			ItemId:      s.itemId,
			WarehouseId: s.warehouseId,
			Name:        s.itemId,
			Quantity:    decimal.NewFromInt(s.qty),
		}); err != nil {
			t.Fatalf("CreateStockItem(%s@%d): %v", s.itemId, s.warehouseId, err)
		}
	}

	summary, err := models.RunStockHealthCheck(ctx)
	if err != nil {
		t.Fatalf("RunStockHealthCheck: %v", err)
	}
	if summary.ReferenceWarehouseId != main.ID {
		t.Fatalf("expected reference warehouse %d; got %d", main.ID, summary.ReferenceWarehouseId)
	}
	if summary.TicketsCreated != 2 {
		t.Fatalf("expected 2 tickets created; got %d", summary.TicketsCreated)
	}

	tickets, err := models.ListTickets(ctx, nil, nil, 0)
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets; got %d", len(tickets))
	}
	byItem := map[string]*models.Ticket{}
	for _, tk := range tickets {
		byItem[tk.ItemId] = tk
	}
	flour := byItem["FLOUR-25KG"]
	if flour == nil {
		t.Fatalf("missing flour ticket")
	}
	if flour.CurrentStatus != models.TicketStatusUrgent {
		t.Fatalf("expected flour ticket Urgent; got %s", flour.CurrentStatus)
	}
	if flour.FromWarehouseId != main.ID || flour.ToWarehouseId != branch.ID {
		t.Fatalf("flour ticket routed %d->%d; want %d->%d", flour.FromWarehouseId, flour.ToWarehouseId, main.ID, branch.ID)
	}
	if flour.CreatedBy != models.AutoTicketCreatedBy {
		t.Fatalf("expected created_by %q; got %q", models.AutoTicketCreatedBy, flour.CreatedBy)
	}
	if flour.Quantity.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("expected flour ticket qty 100; got %s", flour.Quantity.String())
	}
	sugar := byItem["SUGAR-10KG"]
	if sugar == nil {
		t.Fatalf("missing sugar ticket")
	}
	if sugar.CurrentStatus != models.TicketStatusPending {
		t.Fatalf("expected sugar ticket Pending; got %s", sugar.CurrentStatus)
	}
	if _, ok := byItem["YEAST-500G"]; ok {
		t.Fatalf("green item must not get a ticket")
	}

	// Second run with untouched stock: every would-be ticket is a duplicate.
	again, err := models.RunStockHealthCheck(ctx)
	if err != nil {
		t.Fatalf("RunStockHealthCheck (second): %v", err)
	}
	if again.TicketsCreated != 0 {
		t.Fatalf("second run created %d tickets; want 0", again.TicketsCreated)
	}
	if again.DuplicatesSuppressed != 2 {
		t.Fatalf("second run suppressed %d duplicates; want 2", again.DuplicatesSuppressed)
	}
	tickets, err = models.ListTickets(ctx, nil, nil, 0)
	if err != nil {
		t.Fatalf("ListTickets (second): %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected ticket set unchanged (2); got %d", len(tickets))
	}

	// Closing the flour ticket releases the dedup slot; the item is still
	// red, so the next run recreates it.
	if _, err := models.UpdateTicketStatus(ctx, flour.ID, models.TicketStatusCancelled); err != nil {
		t.Fatalf("UpdateTicketStatus: %v", err)
	}
	third, err := models.RunStockHealthCheck(ctx)
	if err != nil {
		t.Fatalf("RunStockHealthCheck (third): %v", err)
	}
	if third.TicketsCreated != 1 {
		t.Fatalf("third run created %d tickets; want 1", third.TicketsCreated)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stocktrack-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stocktrack-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=stocktrack_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
