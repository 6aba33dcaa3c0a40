package config

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Rules groups the tunable heuristics used by extraction and the producers.
type Rules struct {
	Text    TextRules   `mapstructure:"text"`
	Volume  VolumeRules `mapstructure:"volume"`
	Charges ChargeRules `mapstructure:"charges"`
}

// TextRules drives value extraction from OCR/PDF text.
type TextRules struct {
	NoiseThreshold   float64  `mapstructure:"noise_threshold"`
	YearBlacklist    []int    `mapstructure:"year_blacklist"`
	OfficialKeywords []string `mapstructure:"official_keywords"`
}

// VolumeRules drives unit detection and the net billed volume.
type VolumeRules struct {
	CubicMeterUnits       []string `mapstructure:"cubic_meter_units"`
	BilledColumn          string   `mapstructure:"billed_column"`
	CanceledColumn        string   `mapstructure:"canceled_column"`
	ReturnedColumn        string   `mapstructure:"returned_column"`
	SelfConsumptionColumn string   `mapstructure:"self_consumption_column"`
	SelfConsumptionValue  string   `mapstructure:"self_consumption_value"`
	SelfConsumptionTerms  []string `mapstructure:"self_consumption_terms"`
}

// ChargeRules drives the charge-note (RET) ingestion.
type ChargeRules struct {
	EURToBRL       float64  `mapstructure:"eur_to_brl"`
	KnownCompanies []string `mapstructure:"known_companies"`
}

// DefaultRules mirrors the constants the accounting team has always used.
func DefaultRules() Rules {
	return Rules{
		Text: TextRules{
			NoiseThreshold:   50,
			YearBlacklist:    []int{2024, 2025, 2026, 2027},
			OfficialKeywords: []string{"NOTA", "PENALIDADE", "FISCAL"},
		},
		Volume: VolumeRules{
			CubicMeterUnits:       []string{"M3", "M³", "M 3", "M3."},
			BilledColumn:          "Volume Faturado",
			CanceledColumn:        "Volume Devolução",
			ReturnedColumn:        "Volume Devolução",
			SelfConsumptionColumn: "Produto",
			SelfConsumptionValue:  "consumo proprio",
			SelfConsumptionTerms: []string{
				"consumo", "proprio", "próprio", "consumo proprio",
				"consumo próprio", "cons. proprio", "cons proprio",
			},
		},
		Charges: ChargeRules{
			EURToBRL: 6.0,
			KnownCompanies: []string{
				"COPERGAS", "AMBEV", "CBA", "CERVEJARIA", "DEXCO", "GERDAU", "INDORAMA",
				"INGREDION", "KLABIN", "MONDELEZ", "NISSIN", "VETRUS", "M DIAS BRANCO",
				"PETROBRAS", "GALP",
			},
		},
	}
}

// RulesHolder keeps the current Rules and swaps them when the file changes.
type RulesHolder struct {
	current atomic.Value // holds Rules
}

// StaticRules returns a holder that never reloads.
func StaticRules(r Rules) *RulesHolder {
	h := &RulesHolder{}
	h.current.Store(r)
	return h
}

// LoadRules reads path (YAML) over the defaults and watches it for changes.
// A missing file yields the defaults without watching.
func LoadRules(path string, log *zap.Logger) (*RulesHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if path == "" {
		return StaticRules(DefaultRules()), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Info("rules file not found, using defaults", zap.String("path", path))
		return StaticRules(DefaultRules()), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setRuleDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	cfg, err := decodeRules(v)
	if err != nil {
		return nil, err
	}

	holder := StaticRules(cfg)

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeRules(v)
		if err != nil {
			log.Warn("invalid rules ignored", zap.String("path", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("rules reloaded", zap.String("path", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

// Get returns the rules in effect.
func (h *RulesHolder) Get() Rules {
	return h.current.Load().(Rules)
}

func setRuleDefaults(v *viper.Viper) {
	d := DefaultRules()
	v.SetDefault("text.noise_threshold", d.Text.NoiseThreshold)
	v.SetDefault("text.year_blacklist", d.Text.YearBlacklist)
	v.SetDefault("text.official_keywords", d.Text.OfficialKeywords)
	v.SetDefault("volume.cubic_meter_units", d.Volume.CubicMeterUnits)
	v.SetDefault("volume.billed_column", d.Volume.BilledColumn)
	v.SetDefault("volume.canceled_column", d.Volume.CanceledColumn)
	v.SetDefault("volume.returned_column", d.Volume.ReturnedColumn)
	v.SetDefault("volume.self_consumption_column", d.Volume.SelfConsumptionColumn)
	v.SetDefault("volume.self_consumption_value", d.Volume.SelfConsumptionValue)
	v.SetDefault("volume.self_consumption_terms", d.Volume.SelfConsumptionTerms)
	v.SetDefault("charges.eur_to_brl", d.Charges.EURToBRL)
	v.SetDefault("charges.known_companies", d.Charges.KnownCompanies)
}

func decodeRules(v *viper.Viper) (Rules, error) {
	var r Rules
	if err := v.Unmarshal(&r); err != nil {
		return Rules{}, fmt.Errorf("decode rules: %w", err)
	}
	if err := validateRules(r); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func validateRules(r Rules) error {
	if r.Text.NoiseThreshold < 0 {
		return errors.New("text.noise_threshold cannot be negative")
	}
	if len(r.Volume.CubicMeterUnits) == 0 {
		return errors.New("volume.cubic_meter_units cannot be empty")
	}
	if r.Volume.BilledColumn == "" {
		return errors.New("volume.billed_column cannot be empty")
	}
	if r.Charges.EURToBRL <= 0 {
		return errors.New("charges.eur_to_brl must be positive")
	}
	return nil
}
