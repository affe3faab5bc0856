package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ancillary-AGI/titan-sub001/internal/security/coordinator"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/events"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/threat"
)

// ThreatScore returns a tab's score
func (h *Handlers) ThreatScore(c *gin.Context) {
	tab := c.Param("tab")
	ok(c, gin.H{"tabId": tab, "score": h.security.GetThreatScore(tab)})
}

// ListEvents filters the event log. Query parameters: tab, type (repeatable
// or comma separated), minLevel, since, until (RFC 3339), blocked, limit.
func (h *Handlers) ListEvents(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	list := h.security.Events(f)
	ok(c, gin.H{"events": list, "count": len(list)})
}

func parseFilter(c *gin.Context) (events.Filter, error) {
	f := events.Filter{TabID: c.Query("tab")}

	for _, raw := range c.QueryArray("type") {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			typ, err := threat.ParseEventType(name)
			if err != nil {
				return f, err
			}
			f.Types = append(f.Types, typ)
		}
	}
	if v := c.Query("minLevel"); v != "" {
		level, err := threat.ParseLevel(v)
		if err != nil {
			return f, err
		}
		f.MinLevel = level
	}
	var err error
	if f.Since, err = parseTime(c.Query("since")); err != nil {
		return f, err
	}
	if f.Until, err = parseTime(c.Query("until")); err != nil {
		return f, err
	}
	if v := c.Query("blocked"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("invalid blocked flag %q", v)
		}
		f.Blocked = &b
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = n
	}
	return f, nil
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC 3339", v)
	}
	return t, nil
}

func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	start, err := parseTime(c.Query("start"))
	if err != nil {
		return start, start, err
	}
	end, err := parseTime(c.Query("end"))
	return start, end, err
}

// Report summarizes events between the start and end query parameters
func (h *Handlers) Report(c *gin.Context) {
	start, end, err := parseRange(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	ok(c, gin.H{"report": h.security.GenerateSecurityReport(start, end)})
}

// ExportReport streams the report as gzip-compressed JSON
func (h *Handlers) ExportReport(c *gin.Context) {
	start, end, err := parseRange(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	report := h.security.GenerateSecurityReport(start, end)

	c.Header("Content-Type", "application/gzip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="security-report-%s.json.gz"`, report.ID))
	c.Status(http.StatusOK)
	if err := events.ExportReport(c.Writer, report); err != nil {
		_ = c.Error(err)
	}
}

// GetSettings returns the global toggles
func (h *Handlers) GetSettings(c *gin.Context) {
	ok(c, gin.H{"settings": h.security.Settings()})
}

// UpdateSettings replaces and persists the global toggles
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var s coordinator.SecuritySettings
	if !bindJSON(c, &s) {
		return
	}
	if err := h.security.UpdateSettings(c.Request.Context(), s); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	ok(c, gin.H{"settings": h.security.Settings()})
}
