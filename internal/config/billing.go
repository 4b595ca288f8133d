package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig carries operator tunables that can change without a redeploy.
type BillingConfig struct {
	RenewalDaysAhead    int           `mapstructure:"renewalDaysAhead"`
	RenewalReportEvery  time.Duration `mapstructure:"renewalReportEvery"`
	AutoRenewEvery      time.Duration `mapstructure:"autoRenewEvery"`
	ExpirySweepEvery    time.Duration `mapstructure:"expirySweepEvery"`
	IntentRecoveryEvery time.Duration `mapstructure:"intentRecoveryEvery"`
	OverdueSweepEvery   time.Duration `mapstructure:"overdueSweepEvery"`
	IntentStaleAfter    time.Duration `mapstructure:"intentStaleAfter"`
	CardSaveAmountKobo  int64         `mapstructure:"cardSaveAmountKobo"`
	DefaultVATRate      float64       `mapstructure:"defaultVatRate"`
	SubaccountCharge    float64       `mapstructure:"subaccountCharge"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		RenewalDaysAhead:    7,
		RenewalReportEvery:  24 * time.Hour,
		AutoRenewEvery:      7 * 24 * time.Hour,
		ExpirySweepEvery:    time.Hour,
		IntentRecoveryEvery: 5 * time.Minute,
		OverdueSweepEvery:   time.Hour,
		IntentStaleAfter:    15 * time.Minute,
		CardSaveAmountKobo:  100,
		DefaultVATRate:      7.5,
		SubaccountCharge:    0.3,
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfigHolder pins a config without watching any file.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	log = log.Named("billing.config")
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/invoicepadi")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INVOICEPADI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.renewalDaysAhead", defaults.RenewalDaysAhead)
	v.SetDefault("billing.renewalReportEvery", defaults.RenewalReportEvery)
	v.SetDefault("billing.autoRenewEvery", defaults.AutoRenewEvery)
	v.SetDefault("billing.expirySweepEvery", defaults.ExpirySweepEvery)
	v.SetDefault("billing.intentRecoveryEvery", defaults.IntentRecoveryEvery)
	v.SetDefault("billing.overdueSweepEvery", defaults.OverdueSweepEvery)
	v.SetDefault("billing.intentStaleAfter", defaults.IntentStaleAfter)
	v.SetDefault("billing.cardSaveAmountKobo", defaults.CardSaveAmountKobo)
	v.SetDefault("billing.defaultVatRate", defaults.DefaultVATRate)
	v.SetDefault("billing.subaccountCharge", defaults.SubaccountCharge)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.RenewalDaysAhead <= 0 {
		return errors.New("billing.renewalDaysAhead must be positive")
	}
	if cfg.IntentStaleAfter <= 0 {
		return errors.New("billing.intentStaleAfter must be positive")
	}
	if cfg.CardSaveAmountKobo <= 0 {
		return errors.New("billing.cardSaveAmountKobo must be positive")
	}
	if cfg.DefaultVATRate < 0 || cfg.DefaultVATRate > 100 {
		return errors.New("billing.defaultVatRate must be between 0 and 100")
	}
	return nil
}
