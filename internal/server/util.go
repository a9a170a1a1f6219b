package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/loykin/appman/internal/catalog"
	"github.com/loykin/appman/internal/supervisor"
)

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	bp = strings.TrimRight(bp, "/")
	return bp
}

// isSafeName validates app names to avoid path traversal when used in
// filenames (worker log files are named after the app).
// Allowed characters: A-Z a-z 0-9 . _ - and no consecutive dots forming "..".
func isSafeName(s string) bool {
	if s == "" {
		return false
	}
	if strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			continue
		}
		return false
	}
	if strings.ContainsAny(s, "/\\") {
		return false
	}
	return true
}

func writeJSON(c *gin.Context, code int, v any) {
	c.Header("Content-Type", "application/json")
	c.Status(code)
	_ = json.NewEncoder(c.Writer).Encode(v)
}

// appFromParam resolves the :id path parameter to a catalog app. On failure
// it writes the error response and returns ok=false.
func (r *Router) appFromParam(c *gin.Context) (catalog.App, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid app id"})
		return catalog.App{}, false
	}
	a, err := r.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSON(c, http.StatusNotFound, errorResp{Error: "app not found"})
			return catalog.App{}, false
		}
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return catalog.App{}, false
	}
	return a, true
}

// appPayload is the create/update request body.
type appPayload struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Entry   string `json:"entry"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Args    string `json:"args"`
	Enabled *bool  `json:"enabled"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (p *appPayload) validate() []fieldError {
	var errs []fieldError
	p.Name = strings.TrimSpace(p.Name)
	p.Path = strings.TrimSpace(p.Path)
	p.Entry = strings.TrimSpace(p.Entry)
	p.Host = strings.TrimSpace(p.Host)

	if p.Name == "" {
		errs = append(errs, fieldError{"name", "name is required"})
	} else if !isSafeName(p.Name) {
		errs = append(errs, fieldError{"name", "allowed characters: A-Za-z0-9._- and no '..'"})
	}

	if p.Path == "" {
		errs = append(errs, fieldError{"path", "path is required"})
	} else if fi, err := os.Stat(p.Path); err != nil {
		errs = append(errs, fieldError{"path", "path does not exist"})
	} else if !fi.IsDir() {
		errs = append(errs, fieldError{"path", "path must be a folder"})
	}

	if p.Entry == "" {
		errs = append(errs, fieldError{"entry", "entry is required (example: main:app)"})
	} else if !strings.Contains(p.Entry, ":") {
		errs = append(errs, fieldError{"entry", "entry must look like 'module:app'"})
	}

	if p.Port < 1 || p.Port > 65535 {
		errs = append(errs, fieldError{"port", "port must be between 1 and 65535"})
	}
	return errs
}

func (p *appPayload) toApp(id int64) catalog.App {
	host := p.Host
	if host == "" {
		host = "127.0.0.1"
	}
	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}
	return catalog.App{
		ID:      id,
		Name:    p.Name,
		Path:    p.Path,
		Entry:   p.Entry,
		Host:    host,
		Port:    p.Port,
		Args:    p.Args,
		Enabled: enabled,
	}
}

// toLaunchSpec converts a catalog row into a supervisor launch request.
// Args is a whitespace-separated string in the catalog.
func toLaunchSpec(a catalog.App) supervisor.LaunchSpec {
	var args []string
	if a.Args != "" {
		args = strings.Fields(a.Args)
	}
	return supervisor.LaunchSpec{
		Name:    a.Name,
		Host:    a.Host,
		Port:    a.Port,
		WorkDir: a.Path,
		Entry:   a.Entry,
		Args:    args,
	}
}
