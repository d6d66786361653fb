package lang

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Message keys shared by the HTML and JSON responses.
const (
	StoreSuccess          = "store-success"
	UpdateSuccess         = "update-success"
	UpdatePasswordSuccess = "update-password-success"
	DestroySuccess        = "destroy-success"
	DestroyFail           = "destroy-fail"
	NotFound              = "not-found"
	PermissionDenied      = "permission-denied"
	PersistenceFailure    = "persistence-failure"
	LoginFailed           = "login-failed"
	LogoutSuccess         = "logout-success"
)

//go:embed en.yaml
var defaultCatalog []byte

type Catalog struct {
	messages map[string]string
}

// Default returns the embedded English catalog.
func Default() *Catalog {
	c, err := parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("lang: embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog file and falls back to the embedded catalog for any
// key it does not define. An empty path returns Default().
func Load(path string) (*Catalog, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	override, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	for k, v := range override.messages {
		base.messages[k] = v
	}
	return base, nil
}

func parse(data []byte) (*Catalog, error) {
	messages := make(map[string]string)
	if err := yaml.Unmarshal(data, &messages); err != nil {
		return nil, err
	}
	return &Catalog{messages: messages}, nil
}

// Get returns the message for key, or the key itself when it is unknown.
func (c *Catalog) Get(key string) string {
	if msg, ok := c.messages[key]; ok {
		return msg
	}
	return key
}
