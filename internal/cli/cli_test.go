package cli

import (
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/openclimate/harmonize/internal/model"
)

func TestParseRecord(t *testing.T) {
	record, keys, err := parseRecord([]string{"id=IMF", "name=International Monetary Fund", "URL=https://www.imf.org/?a=b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 3 || keys[2] != "URL" {
		t.Errorf("unexpected keys %v", keys)
	}
	if record["URL"] != "https://www.imf.org/?a=b" {
		t.Errorf("value should keep later '=' signs, got %q", record["URL"])
	}

	if _, _, err := parseRecord([]string{"id"}); err == nil {
		t.Error("expected error for missing '='")
	}
	if _, _, err := parseRecord([]string{"id=a", "id=b"}); err == nil {
		t.Error("expected error for duplicate key")
	}
}

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	if err := registerDefaults(model.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	viper.SetEnvPrefix("HARMONIZE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	t.Setenv("HARMONIZE_OUTPUT_DIR", "/tmp/openclimate")
	t.Setenv("HARMONIZE_IMF_MAX_YEAR", "2020")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	want := model.DefaultConfig()

	if cfg.Output.Dir != "/tmp/openclimate" {
		t.Errorf("expected env override of output.dir, got %q", cfg.Output.Dir)
	}
	if cfg.IMF.MaxYear != 2020 {
		t.Errorf("expected env override of imf.max_year, got %d", cfg.IMF.MaxYear)
	}
	if cfg.HTTP.Timeout != want.HTTP.Timeout {
		t.Errorf("expected default timeout %v, got %v", want.HTTP.Timeout, cfg.HTTP.Timeout)
	}
	if len(cfg.PRIMAP.DropArea) != len(want.PRIMAP.DropArea) {
		t.Errorf("expected %d drop areas, got %d", len(want.PRIMAP.DropArea), len(cfg.PRIMAP.DropArea))
	}
	if cfg.PRIMAP.Metadata.Methodology == nil || cfg.PRIMAP.Metadata.Methodology.ID != want.PRIMAP.Metadata.Methodology.ID {
		t.Error("expected PRIMAP methodology from defaults")
	}
	if cfg.IMF.Metadata.Methodology != nil {
		t.Error("expected no IMF methodology")
	}
	if len(cfg.RateLimiting.Hosts) != 1 || cfg.RateLimiting.Hosts[0].Host != "zenodo.org" {
		t.Errorf("unexpected host rates %+v", cfg.RateLimiting.Hosts)
	}
}
