package model

import "time"

// Config is the complete harmonize configuration.
// Field tags serve both viper (mapstructure) and `config show` (yaml).
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Reference    ReferenceConfig    `yaml:"reference" mapstructure:"reference"`
	PRIMAP       PRIMAPConfig       `yaml:"primap" mapstructure:"primap"`
	UNFCCC       UNFCCCConfig       `yaml:"unfccc" mapstructure:"unfccc"`
	IMF          IMFConfig          `yaml:"imf" mapstructure:"imf"`
}

// HTTPConfig controls dataset downloads
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the download cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitingConfig limits requests per host. Hosts overrides the rate
// for individual hosts.
type RateLimitingConfig struct {
	RequestsPerSecond float64    `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int        `yaml:"burst_size" mapstructure:"burst_size"`
	Hosts             []HostRate `yaml:"hosts,omitempty" mapstructure:"hosts"`
}

// HostRate is a per-host request rate. A list rather than a map, since
// viper splits map keys on dots.
type HostRate struct {
	Host              string  `yaml:"host" mapstructure:"host"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ConcurrencyConfig controls how many sources run at once
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls where tables are written
type OutputConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	SQLitePath  string `yaml:"sqlite_path,omitempty" mapstructure:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn,omitempty" mapstructure:"postgres_dsn"`
	MetricsFile string `yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`
	ReportFile  string `yaml:"report_file,omitempty" mapstructure:"report_file"`
	SchemaPath  string `yaml:"schema_path,omitempty" mapstructure:"schema_path"`
	Verbose     bool   `yaml:"verbose" mapstructure:"verbose"`
}

// ReferenceConfig locates the shared reference tables.
// A locator is either a local path or an http(s) URL.
type ReferenceConfig struct {
	ISOCodes   string `yaml:"iso_codes" mapstructure:"iso_codes"`
	Actors     string `yaml:"actors" mapstructure:"actors"`
	Dictionary string `yaml:"dictionary" mapstructure:"dictionary"`
}

// PRIMAPConfig selects the PRIMAP-hist subset to harmonize
type PRIMAPConfig struct {
	Locator  string   `yaml:"locator" mapstructure:"locator"`
	Entity   string   `yaml:"entity" mapstructure:"entity"`
	Category string   `yaml:"category" mapstructure:"category"`
	Scenario string   `yaml:"scenario" mapstructure:"scenario"`
	DropArea []string `yaml:"drop_area" mapstructure:"drop_area"`
	Metadata Metadata `yaml:"metadata" mapstructure:"metadata"`
}

// UNFCCCConfig describes a UNFCCC GHG time series export (kt CO2 eq)
type UNFCCCConfig struct {
	Locator       string   `yaml:"locator" mapstructure:"locator"`
	CountryColumn string   `yaml:"country_column" mapstructure:"country_column"`
	SourceLabel   string   `yaml:"source_label" mapstructure:"source_label"`
	DropCountries []string `yaml:"drop_countries" mapstructure:"drop_countries"`
	Metadata      Metadata `yaml:"metadata" mapstructure:"metadata"`
}

// IMFConfig describes an IMF DataMapper GDP export
type IMFConfig struct {
	Locator          string   `yaml:"locator" mapstructure:"locator"`
	CountryColumn    string   `yaml:"country_column" mapstructure:"country_column"`
	FooterPrefix     string   `yaml:"footer_prefix" mapstructure:"footer_prefix"`
	MaxYear          int      `yaml:"max_year" mapstructure:"max_year"`
	CountryGroups    []string `yaml:"country_groups" mapstructure:"country_groups"`
	ExcludeCountries []string `yaml:"exclude_countries" mapstructure:"exclude_countries"`
	Metadata         Metadata `yaml:"metadata" mapstructure:"metadata"`
}

// Default dataset locations
const (
	DefaultISOCodesURL   = "https://raw.githubusercontent.com/Open-Earth-Foundation/OpenClimate-ISO-3166/main/ISO-3166-1.csv"
	DefaultActorsURL     = "https://raw.githubusercontent.com/Open-Earth-Foundation/OpenClimate-ISO-3166/main/ISO-3166-1/Actor.csv"
	DefaultDictionaryURL = "https://raw.githubusercontent.com/datadrivenenvirolab/ClimActor/master/data-raw/country_dict_August2020.csv"
	DefaultPRIMAPURL     = "https://zenodo.org/record/5494497/files/Guetschow-et-al-2021-PRIMAP-hist_v2.3.1_no_extrap_20-Sep_2021.csv"
)

// PRIMAPAggregateAreas are PRIMAP region codes that are not countries, plus
// ANT (Netherlands Antilles, dissolved 2010-10-10).
var PRIMAPAggregateAreas = []string{
	"EARTH",
	"ANNEXI",
	"NONANNEXI",
	"AOSIS",
	"BASIC",
	"EU27BX",
	"LDC",
	"UMBRELLA",
	"ANT",
}

// IMFCountryGroups are IMF aggregates that must be removed after names are stripped.
var IMFCountryGroups = []string{
	"ASEAN-5",
	"Australia and New Zealand",
	"Advanced economies",
	"Africa (Region)",
	"Asia and Pacific",
	"Caribbean",
	"Central America",
	"Central Asia and the Caucasus",
	"East Asia",
	"Eastern Europe",
	"Emerging and Developing Asia",
	"Emerging and Developing Europe",
	"Emerging market and developing economies",
	"Euro area",
	"Europe",
	"European Union",
	"Latin America and the Caribbean",
	"Major advanced economies (G7)",
	"Middle East (Region)",
	"Middle East and Central Asia",
	"North Africa",
	"North America",
	"Other advanced economies",
	"Pacific Islands",
	"South America",
	"South Asia",
	"Southeast Asia",
	"Sub-Saharan Africa",
	"Sub-Saharan Africa (Region)",
	"West Bank and Gaza",
	"Western Europe",
	"Western Hemisphere (Region)",
	"World",
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       5 * time.Minute,
			UserAgent:     "harmonize/0.3 (+https://github.com/openclimate/harmonize)",
			MaxBodyBytes:  1 << 30,
			MaxRetries:    3,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
			Hosts: []HostRate{
				{Host: "zenodo.org", RequestsPerSecond: 0.5},
			},
		},
		Concurrency: ConcurrencyConfig{
			Workers: 3,
		},
		Output: OutputConfig{
			Dir: "./data/processed",
		},
		Reference: ReferenceConfig{
			ISOCodes:   DefaultISOCodesURL,
			Actors:     DefaultActorsURL,
			Dictionary: DefaultDictionaryURL,
		},
		PRIMAP: PRIMAPConfig{
			Locator:  DefaultPRIMAPURL,
			Entity:   "CO2",
			Category: "M.0.EL",
			Scenario: "HISTCR",
			DropArea: append([]string(nil), PRIMAPAggregateAreas...),
			Metadata: Metadata{
				Publisher: Publisher{
					ID:   "PRIMAP",
					Name: "Potsdam Realtime Integrated Model for probabilistic Assessment of emissions Path",
					URL:  "https://www.pik-potsdam.de/paris-reality-check/primap-hist/",
				},
				DataSource: DataSource{
					ID:        "PRIMAP:10.5281/zenodo.5494497:v2.3.1",
					Name:      "PRIMAP-hist: a national historical emissions time series (1750-2019) v2.3.1",
					Publisher: "PRIMAP",
					Published: "2021-09-20",
					URL:       "https://zenodo.org/record/5494497",
				},
				Methodology: &Methodology{
					ID:   "PRIMAP-hist_v2.3.1_no_extrap",
					Name: "PRIMAP-hist v2.3.1 (HISTCR, no extrapolation)",
					Link: "https://zenodo.org/record/5494497/files/PRIMAP-hist_v2.3.1_data-description.pdf",
				},
			},
		},
		UNFCCC: UNFCCCConfig{
			CountryColumn: "Party",
			SourceLabel:   "UNFCCC",
			DropCountries: []string{
				"European Union (Convention)",
				"European Union (KP)",
				"European Union (15)",
				"European Union (27)",
				"European Union (28)",
			},
			Metadata: Metadata{
				Publisher: Publisher{
					ID:   "UNFCCC",
					Name: "United Nations Framework Convention on Climate Change",
					URL:  "https://unfccc.int",
				},
				DataSource: DataSource{
					ID:        "UNFCCC:GHG_TIME_SERIES",
					Name:      "UNFCCC GHG data interface: total GHG emissions without LULUCF",
					Publisher: "UNFCCC",
					Published: "2022-01-01",
					URL:       "https://di.unfccc.int/time_series",
				},
				Methodology: &Methodology{
					ID:   "UNFCCC-national-inventory",
					Name: "National inventory submissions to the UNFCCC",
					Link: "https://unfccc.int/process-and-meetings/transparency-and-reporting/reporting-and-review-under-the-convention/greenhouse-gas-inventories-annex-i-parties",
				},
			},
		},
		IMF: IMFConfig{
			CountryColumn:    "GDP, current prices (Billions of U.S. dollars)",
			FooterPrefix:     "©IMF",
			MaxYear:          2021,
			CountryGroups:    append([]string(nil), IMFCountryGroups...),
			ExcludeCountries: []string{"Kosovo"},
			Metadata: Metadata{
				Publisher: Publisher{
					ID:   "IMF",
					Name: "International Monetary Fund",
					URL:  "https://www.imf.org",
				},
				DataSource: DataSource{
					ID:        "IMF:WEO:2022-10",
					Name:      "World Economic Outlook (October 2022): GDP, current prices",
					Publisher: "IMF",
					Published: "2022-10-11",
					URL:       "https://www.imf.org/external/datamapper/NGDPD@WEO",
				},
			},
		},
	}
}
