// Package meta wraps the Meta Graph API calls the social adapter needs.
// A lead ad webhook only carries a reference id; the actual field values
// have to be fetched here with the tenant's page access token.
package meta

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"autolead_backend/platform/apperr"
	"autolead_backend/platform/config"
)

// Graph error codes that indicate a bad or expired access token.
var authErrorCodes = map[int]bool{102: true, 190: true}

// Graph error codes that indicate throttling.
var throttleErrorCodes = map[int]bool{4: true, 17: true, 613: true}

// Field is one answered question on a lead ad form.
type Field struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Lead is the materialized lead ad submission fetched from the Graph API.
type Lead struct {
	ID          string  `json:"id"`
	CreatedTime string  `json:"created_time"`
	IsOrganic   bool    `json:"is_organic"`
	FieldData   []Field `json:"field_data"`
}

// Value returns the first value of the first field matching any of the
// given names, or "" when none is present.
func (l *Lead) Value(names ...string) string {
	for _, name := range names {
		for _, field := range l.FieldData {
			if strings.EqualFold(field.Name, name) && len(field.Values) > 0 {
				return strings.TrimSpace(field.Values[0])
			}
		}
	}
	return ""
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Client fetches lead data from the Graph API.
type Client struct {
	rest    *resty.Client
	version string
}

// NewClient creates a Graph API client.
func NewClient(cfg config.MetaConfig) *Client {
	rest := resty.New().
		SetBaseURL("https://graph.facebook.com").
		SetTimeout(10 * time.Second).
		SetRetryCount(1).
		SetRetryWaitTime(2 * time.Second)

	return &Client{rest: rest, version: cfg.GetMetaGraphVersion()}
}

// FetchLead retrieves the field values for one leadgen id using the
// tenant's page access token.
func (c *Client) FetchLead(ctx context.Context, leadgenID, pageToken string) (*Lead, error) {
	var lead Lead
	var apiErr graphError

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("access_token", pageToken).
		SetQueryParam("fields", "id,created_time,is_organic,field_data").
		SetResult(&lead).
		SetError(&apiErr).
		Get(fmt.Sprintf("/%s/%s", c.version, leadgenID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "graph api unreachable", err)
	}

	if resp.IsError() {
		code := apiErr.Error.Code
		switch {
		case authErrorCodes[code]:
			return nil, apperr.Unauthorized("graph api rejected page token").
				WithDetails(apiErr.Error.Message)
		case throttleErrorCodes[code]:
			return nil, apperr.Unavailable("graph api throttled the request")
		default:
			return nil, apperr.Internal(fmt.Sprintf("graph api error %d: %s", code, apiErr.Error.Message))
		}
	}

	if lead.ID == "" {
		return nil, apperr.Internal("graph api returned an empty lead")
	}

	return &lead, nil
}
