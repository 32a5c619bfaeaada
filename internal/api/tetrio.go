package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"tetra-tracker/internal/config"
	"tetra-tracker/internal/domain"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const userAgent = "tetra-tracker/1.0"

// ErrAPI marks any upstream response that was not a success.
var ErrAPI = errors.New("tetrio api error")

type TetrioClient struct {
	baseURL string
	client  *fasthttp.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func NewTetrioClient(cfg *config.Config, logger zerolog.Logger) *TetrioClient {
	return &TetrioClient{
		baseURL: strings.TrimRight(cfg.APIBase, "/"),
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.APIRatePerSecond), 1),
		logger:  logger.With().Str("component", "tetrio").Logger(),
	}
}

// FetchLeaguePage returns one page of the ranked ladder. after is the
// previous page's last cursor, nil for the first page. Every page of one
// walk should carry the same session so upstream serves a consistent view.
func (c *TetrioClient) FetchLeaguePage(ctx context.Context, session string, after *domain.Prisecter, limit int) ([]domain.LadderEntry, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if after != nil {
		query.Set("after", FormatCursor(*after))
	}

	resp, err := doRequest[LeaderboardResponse](ctx, c, c.baseURL+"/users/by/league?"+query.Encode(), session)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LadderEntry, len(resp.Data.Entries))
	for i, e := range resp.Data.Entries {
		entries[i] = domain.LadderEntry{
			PlayerID:  e.ID,
			Username:  e.Username,
			Rating:    e.League.TR,
			PPS:       e.League.PPS,
			APM:       e.League.APM,
			VS:        e.League.VS,
			TierLabel: e.League.Rank,
			Country:   e.Country,
			Cursor:    e.P,
		}
	}
	return entries, nil
}

// ResolvePlayer maps a username or user ID to the account's canonical ID,
// the key ladder entries are stored under.
func (c *TetrioClient) ResolvePlayer(ctx context.Context, user string) (string, error) {
	endpoint := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(strings.ToLower(user)))
	resp, err := doRequest[UserResponse](ctx, c, endpoint, "")
	if err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("%w: no id for user %q", ErrAPI, user)
	}
	return resp.Data.ID, nil
}

// CurrentRating looks up a player's live rating. Unranked players report -1.
func (c *TetrioClient) CurrentRating(ctx context.Context, playerID string) (float64, error) {
	endpoint := fmt.Sprintf("%s/users/%s/summaries/league", c.baseURL, url.PathEscape(strings.ToLower(playerID)))
	resp, err := doRequest[LeagueSummaryResponse](ctx, c, endpoint, "")
	if err != nil {
		return 0, err
	}
	return resp.Data.TR, nil
}

// FormatCursor renders a cursor the way the after parameter expects.
func FormatCursor(p domain.Prisecter) string {
	return strconv.FormatFloat(p.Pri, 'f', -1, 64) + ":" +
		strconv.FormatFloat(p.Sec, 'f', -1, 64) + ":" +
		strconv.FormatFloat(p.Ter, 'f', -1, 64)
}

type envelope interface {
	failure() error
}

func doRequest[T any, PT interface {
	*T
	envelope
}](ctx context.Context, client *TetrioClient, endpoint, session string) (*T, error) {
	if err := client.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}

	start := time.Now()
	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	client.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode()).
		Dur("took", time.Since(start)).
		Msg("tetrio request")

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrAPI, resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	if err := PT(&result).failure(); err != nil {
		return nil, err
	}
	return &result, nil
}

type Status struct {
	Success bool `json:"success"`
	Error   *struct {
		Msg string `json:"msg"`
	} `json:"error,omitempty"`
}

func (s *Status) failure() error {
	if s.Success {
		return nil
	}
	if s.Error != nil && s.Error.Msg != "" {
		return fmt.Errorf("%w: %s", ErrAPI, s.Error.Msg)
	}
	return fmt.Errorf("%w: unsuccessful response", ErrAPI)
}

type LeaderboardResponse struct {
	Status
	Data struct {
		Entries []LeaderboardEntry `json:"entries"`
	} `json:"data"`
}

type LeaderboardEntry struct {
	ID       string           `json:"_id"`
	Username string           `json:"username"`
	Role     string           `json:"role"`
	Country  string           `json:"country"`
	League   LeagueStats      `json:"league"`
	P        domain.Prisecter `json:"p"`
}

type LeagueStats struct {
	GamesPlayed int     `json:"gamesplayed"`
	GamesWon    int     `json:"gameswon"`
	TR          float64 `json:"tr"`
	GXE         float64 `json:"gxe"`
	Rank        string  `json:"rank"`
	BestRank    string  `json:"bestrank"`
	Glicko      float64 `json:"glicko"`
	RD          float64 `json:"rd"`
	APM         float64 `json:"apm"`
	PPS         float64 `json:"pps"`
	VS          float64 `json:"vs"`
	Decaying    bool    `json:"decaying"`
}

type LeagueSummaryResponse struct {
	Status
	Data LeagueStats `json:"data"`
}

type UserResponse struct {
	Status
	Data struct {
		ID       string `json:"_id"`
		Username string `json:"username"`
	} `json:"data"`
}
