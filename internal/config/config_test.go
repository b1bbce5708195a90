package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DB_PASSWORD", "test_password")
	t.Setenv("WILDERNESS_NAME", "The Wilds")
	t.Setenv("GATEWAY_TIMEOUT", "500ms")
	t.Setenv("CLAIMS_ENABLED", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.DBPassword != "test_password" {
		t.Errorf("DBPassword = %q, want %q", cfg.DBPassword, "test_password")
	}
	if cfg.WildernessName != "The Wilds" {
		t.Errorf("WildernessName = %q, want %q", cfg.WildernessName, "The Wilds")
	}
	if cfg.GatewayTimeout != 500*time.Millisecond {
		t.Errorf("GatewayTimeout = %v, want 500ms", cfg.GatewayTimeout)
	}
	if cfg.ClaimsEnabled {
		t.Error("ClaimsEnabled = true, want false")
	}
	if cfg.StorageDriver != StorageDriverPostgres {
		t.Errorf("StorageDriver = %q, want %q", cfg.StorageDriver, StorageDriverPostgres)
	}
	if cfg.ClaimRateWindow != time.Minute {
		t.Errorf("ClaimRateWindow = %v, want 1m", cfg.ClaimRateWindow)
	}
}

func TestLoadConfig_SQLiteNeedsNoPassword(t *testing.T) {
	os.Clearenv()
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/claims.db")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.SQLitePath != "/tmp/claims.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name:    "Missing DB_PASSWORD",
			envVars: map[string]string{"STORAGE_DRIVER": "postgres"},
		},
		{
			name:    "Unknown driver",
			envVars: map[string]string{"STORAGE_DRIVER": "mysql", "DB_PASSWORD": "password"},
		},
		{
			name:    "Malformed duration",
			envVars: map[string]string{"DB_PASSWORD": "password", "GATEWAY_TIMEOUT": "soon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			if err == nil {
				t.Error("LoadConfig() expected error, got nil")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StorageDriver:   StorageDriverPostgres,
			DBPassword:      "password",
			WildernessName:  "Wilderness",
			GatewayTimeout:  time.Second,
			ClaimRateLimit:  10,
			ClaimRateWindow: time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "Valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "Empty wilderness name", mutate: func(c *Config) { c.WildernessName = "" }, wantErr: true},
		{name: "Zero timeout", mutate: func(c *Config) { c.GatewayTimeout = 0 }, wantErr: true},
		{name: "Zero rate limit", mutate: func(c *Config) { c.ClaimRateLimit = 0 }, wantErr: true},
		{name: "SQLite without path", mutate: func(c *Config) { c.StorageDriver = StorageDriverSQLite; c.SQLitePath = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateProductionSecurity(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		shouldErr bool
	}{
		{
			name:      "Valid production config",
			cfg:       &Config{AppEnv: "production", StorageDriver: StorageDriverPostgres, DBSSLMode: "require"},
			shouldErr: false,
		},
		{
			name:      "Development mode - no validation",
			cfg:       &Config{AppEnv: "development", StorageDriver: StorageDriverPostgres, DBSSLMode: "disable", StrictInvariants: true},
			shouldErr: false,
		},
		{
			name:      "Production without SSL",
			cfg:       &Config{AppEnv: "production", StorageDriver: StorageDriverPostgres, DBSSLMode: "disable"},
			shouldErr: true,
		},
		{
			name:      "Production SQLite ignores SSL",
			cfg:       &Config{AppEnv: "production", StorageDriver: StorageDriverSQLite},
			shouldErr: false,
		},
		{
			name:      "Production with strict invariants",
			cfg:       &Config{AppEnv: "production", StorageDriver: StorageDriverPostgres, DBSSLMode: "require", StrictInvariants: true},
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateProductionSecurity()
			if tt.shouldErr && err == nil {
				t.Error("ValidateProductionSecurity() expected error, got nil")
			}
			if !tt.shouldErr && err != nil {
				t.Errorf("ValidateProductionSecurity() unexpected error = %v", err)
			}
		})
	}
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "localhost",
		DBPort:     "5432",
		DBUser:     "testuser",
		DBPassword: "testpass",
		DBName:     "testdb",
		DBSSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	dsn := cfg.GetDSN()

	if dsn != expected {
		t.Errorf("GetDSN() = %q, want %q", dsn, expected)
	}
}

func TestLoadClaimDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.yaml")
	content := `ranks:
  BUILD: FRIEND
  TRADING: PASSIVE
settings:
  PLAYER_COMBAT:
    wilderness: true
  EXPLOSIONS:
    claim: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	d, err := LoadClaimDefaults(path)
	if err != nil {
		t.Fatalf("LoadClaimDefaults() error = %v", err)
	}
	if d.Ranks["BUILD"] != "FRIEND" || d.Ranks["TRADING"] != "PASSIVE" {
		t.Errorf("Ranks = %v", d.Ranks)
	}
	combat := d.Settings["PLAYER_COMBAT"]
	if combat.Wilderness == nil || !*combat.Wilderness || combat.Claim != nil {
		t.Errorf("PLAYER_COMBAT = %+v", combat)
	}
	explosions := d.Settings["EXPLOSIONS"]
	if explosions.Claim == nil || !*explosions.Claim || explosions.Wilderness != nil {
		t.Errorf("EXPLOSIONS = %+v", explosions)
	}

	wilderness, claim := d.SettingOverrides()
	if len(wilderness) != 1 || !wilderness["PLAYER_COMBAT"] {
		t.Errorf("wilderness overrides = %v", wilderness)
	}
	if len(claim) != 1 || !claim["EXPLOSIONS"] {
		t.Errorf("claim overrides = %v", claim)
	}
}

func TestLoadClaimDefaults_EmptyPath(t *testing.T) {
	d, err := LoadClaimDefaults("")
	if err != nil {
		t.Fatalf("LoadClaimDefaults() error = %v", err)
	}
	if len(d.Ranks) != 0 || len(d.Settings) != 0 {
		t.Errorf("expected no overrides, got %+v", d)
	}
}

func TestLoadClaimDefaults_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.yaml")
	if err := os.WriteFile(path, []byte("ranks: [not, a, map"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadClaimDefaults(path); err == nil {
		t.Error("LoadClaimDefaults() expected error for malformed YAML")
	}
}
