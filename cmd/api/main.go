package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/payroll-batch-go/internal/config"
	appHTTP "github.com/cmlabs-hris/payroll-batch-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-batch-go/internal/repository/postgresql"
	batchService "github.com/cmlabs-hris/payroll-batch-go/internal/service/batch"
	policyService "github.com/cmlabs-hris/payroll-batch-go/internal/service/policy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	dsn := cfg.DatabaseURL()
	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		slog.String("app", "payroll-batch"),
	)

	batchRepo := postgresql.NewBatchRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)
	policyRepo := postgresql.NewPolicyRepository(db)
	paymentRepo := postgresql.NewPaymentHistoryRepository(db)
	roster, attendance, adjustments := postgresql.NewHRRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret)

	formulas := policyService.NewFormulaRegistry()
	evaluator := policyService.NewEvaluator(formulas, logger)
	policySvc := policyService.NewPolicyService(db, policyRepo)
	calculator := batchService.NewCalculator(db, payrollRepo, roster, attendance, adjustments, evaluator, logger)
	batchSvc := batchService.NewBatchService(
		db,
		batchRepo,
		payrollRepo,
		policyRepo,
		paymentRepo,
		roster,
		calculator,
		cfg.Payroll.CalculationWorkers,
		logger,
	)

	batchHandler := appHTTP.NewBatchHandler(batchSvc)
	policyHandler := appHTTP.NewPolicyHandler(policySvc)

	router := appHTTP.NewRouter(JWTService, batchHandler, policyHandler)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	fmt.Printf("Server running at http://localhost%s\n", port)
	if err := http.ListenAndServe(port, router); err != nil {
		fmt.Println("Server error:", err)
	}
}
