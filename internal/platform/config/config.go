package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	// Bounded wait for per-account exclusive access; exceeding it fails the
	// operation with an operation-timeout error.
	LockWaitTimeout time.Duration

	// Fee charged on withdrawals and transfers, as a fraction of the amount.
	// Zero disables fees entirely.
	TransferFeeRate decimal.Decimal
	FeeAccountID    string

	// System accounts the loan book moves money through.
	LoanFundingAccountID    string
	LoanSettlementAccountID string

	// Largest principal a single loan may carry, in minor units. Zero means
	// uncapped.
	MaxLoanPrincipal int64

	// How many consecutive overdue installments flip a loan to DEFAULTED.
	DefaultMissedThreshold int

	// Spacing between installment due dates.
	InstallmentInterval time.Duration

	// Optional cache for loan outstanding balances. Empty disables caching.
	RedisURL string

	// Requests per minute per client IP. Zero disables rate limiting.
	RateLimitPerMinute int
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("LOCK_WAIT_TIMEOUT", "5s")
	viper.SetDefault("TRANSFER_FEE_RATE", "0")
	viper.SetDefault("FEE_ACCOUNT_ID", "")
	viper.SetDefault("LOAN_FUNDING_ACCOUNT_ID", "")
	viper.SetDefault("LOAN_SETTLEMENT_ACCOUNT_ID", "")
	viper.SetDefault("MAX_LOAN_PRINCIPAL", int64(5_000_000))
	viper.SetDefault("DEFAULT_MISSED_THRESHOLD", 2)
	viper.SetDefault("INSTALLMENT_INTERVAL", "168h")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 0)

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	lockWaitStr := viper.GetString("LOCK_WAIT_TIMEOUT")
	lockWait, err := time.ParseDuration(lockWaitStr)
	if err != nil || lockWait <= 0 {
		lockWait = 5 * time.Second
		if lockWaitStr != "" {
			log.Printf("Warning: Invalid value for LOCK_WAIT_TIMEOUT ('%s'). Defaulting to %s.\n", lockWaitStr, lockWait)
		}
	}

	feeRateStr := viper.GetString("TRANSFER_FEE_RATE")
	feeRate, err := decimal.NewFromString(feeRateStr)
	if err != nil || feeRate.IsNegative() {
		feeRate = decimal.Zero
		if feeRateStr != "" && feeRateStr != "0" {
			log.Printf("Warning: Invalid value for TRANSFER_FEE_RATE ('%s'). Fees disabled.\n", feeRateStr)
		}
	}

	intervalStr := viper.GetString("INSTALLMENT_INTERVAL")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil || interval <= 0 {
		interval = 7 * 24 * time.Hour
		if intervalStr != "" {
			log.Printf("Warning: Invalid value for INSTALLMENT_INTERVAL ('%s'). Defaulting to %s.\n", intervalStr, interval)
		}
	}

	missedThreshold := viper.GetInt("DEFAULT_MISSED_THRESHOLD")
	if missedThreshold <= 0 {
		missedThreshold = 2
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.LockWaitTimeout = lockWait
	cfg.TransferFeeRate = feeRate
	cfg.FeeAccountID = viper.GetString("FEE_ACCOUNT_ID")
	cfg.LoanFundingAccountID = viper.GetString("LOAN_FUNDING_ACCOUNT_ID")
	cfg.LoanSettlementAccountID = viper.GetString("LOAN_SETTLEMENT_ACCOUNT_ID")
	cfg.MaxLoanPrincipal = viper.GetInt64("MAX_LOAN_PRINCIPAL")
	cfg.DefaultMissedThreshold = missedThreshold
	cfg.InstallmentInterval = interval
	cfg.RedisURL = viper.GetString("REDIS_URL")
	cfg.RateLimitPerMinute = viper.GetInt("RATE_LIMIT_PER_MINUTE")

	if cfg.TransferFeeRate.IsPositive() && cfg.FeeAccountID == "" {
		log.Println("Warning: TRANSFER_FEE_RATE is set but FEE_ACCOUNT_ID is not. Fees disabled.")
		cfg.TransferFeeRate = decimal.Zero
	}
	if cfg.LoanFundingAccountID == "" || cfg.LoanSettlementAccountID == "" {
		log.Println("Warning: loan funding/settlement accounts not configured. Loan origination will be rejected.")
	}

	return cfg, nil
}
