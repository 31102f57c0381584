package config

import (
	"bufio"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"
)

type LLMConfig struct {
	ApiUrl       string `toml:"python_api"`
	MaxNewTokens int    `toml:"max_new_tokens"`
}

type MatrixConfig struct {
	Rooms []string `toml:"rooms"` // rooms the bot replies in; empty means all joined rooms

	HomeServer  string
	UserID      string
	AccessToken string
}

// MonitorsRoom reports whether the bot should handle messages in the room.
func (c *MatrixConfig) MonitorsRoom(roomId string) bool {
	if len(c.Rooms) == 0 {
		return true
	}
	for _, room := range c.Rooms {
		if room == roomId {
			return true
		}
	}
	return false
}

type ScrapeConfig struct {
	Output      string `toml:"output"`
	TimeGapMins int    `toml:"time_gap"`
}

type Config struct {
	Matrix *MatrixConfig `toml:"matrix"`
	LLM    *LLMConfig    `toml:"llm"`
	Scrape *ScrapeConfig `toml:"scrape"`

	DatabaseUrl string
}

func (c *Config) getenv(name string) string {
	return os.Getenv(name)
}

func (c *Config) Load(path string) {
	file, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Error reading %v: %v", path, err)
		return
	}
	if err := toml.Unmarshal(file, c); err != nil {
		log.Fatalf("Error decoding TOML: %s", err)
		return
	}
	if c.Matrix == nil {
		c.Matrix = &MatrixConfig{}
	}
	if c.Scrape == nil {
		c.Scrape = &ScrapeConfig{}
	}
	if c.Scrape.Output == "" {
		c.Scrape.Output = "./data/messages.csv"
	}
	if c.Scrape.TimeGapMins == 0 {
		c.Scrape.TimeGapMins = 30
	}
	if c.LLM != nil && c.LLM.MaxNewTokens == 0 {
		c.LLM.MaxNewTokens = 64
	}
	log.Infof("Loaded config: %+v", c)

	// load .env
	err = godotenv.Load()
	if err != nil {
		log.Warnf("[Expected in docker] Error loading .env file: %v", err)
	}
	c.Matrix.HomeServer = c.getenv("MATRIX_HOMESERVER")
	c.Matrix.UserID = c.getenv("MATRIX_USER_ID")
	c.Matrix.AccessToken = c.getenv("MATRIX_ACCESS_TOKEN")
	c.DatabaseUrl = c.getenv("DATABASE_URL")

	if c.Matrix.HomeServer == "" || c.Matrix.UserID == "" {
		log.Fatalf("Incomplete matrix credentials: MATRIX_HOMESERVER and MATRIX_USER_ID are required")
	}
}

// RequireAccessToken aborts startup when no access token is configured.
// Used by the bot, which has no interactive fallback.
func (c *Config) RequireAccessToken() {
	if c.Matrix.AccessToken == "" {
		log.Fatalf("MATRIX_ACCESS_TOKEN environment variable is not set")
	}
}

// PromptAccessToken asks for a token on stdin when the environment does not
// provide one. Used by the scraper.
func (c *Config) PromptAccessToken() {
	if c.Matrix.AccessToken != "" {
		return
	}
	c.Matrix.AccessToken = Prompt("Please enter your matrix access token: ")
	if c.Matrix.AccessToken == "" {
		log.Fatalf("No access token provided")
	}
}

// Prompt reads one trimmed line from stdin.
func Prompt(question string) string {
	os.Stdout.WriteString(question)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}
