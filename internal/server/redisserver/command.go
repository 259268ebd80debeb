package redisserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
)

// errorReply converts an error to a reply line.
// Domain errors become "ERR <code> <message>[: details]"; internal
// failures are not described to the client.
func errorReply(err error) string {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return "ERR " + domain.ErrInternalServer.Code + " " + domain.ErrInternalServer.Message
	}
	if strings.HasPrefix(de.Code, "CL-SYS-5") {
		return "ERR " + de.Code + " " + de.Message
	}
	msg := "ERR " + de.Code + " " + de.Message
	if de.Details != "" {
		msg += ": " + de.Details
	}
	if errors.Is(de, domain.ErrSubmissionFailed) {
		if cause := domain.GetErrorCode(de.Cause); cause != "" {
			msg += " (" + cause + ")"
		}
	}
	return msg
}

// claimReply is the JSON document returned by CL.GET.
type claimReply struct {
	*domain.ClaimToken
	Structured bool                       `json:"structured"`
	Metadata   *domain.StructuredMetadata `json:"metadata,omitempty"`
}

// CommandHandler executes RESP commands against the registry.
//
// Reads are public. CL.MINT and CL.SUBMISSION need a connection
// authenticated with an issuer or admin key.
type CommandHandler struct {
	registry    *service.RegistryService
	query       *service.QueryService
	auth        *service.AuthService
	rateLimit   int
	waitTimeout time.Duration
	logger      *slog.Logger
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(svc Services, rateLimit int, waitTimeout time.Duration, logger *slog.Logger) *CommandHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandHandler{
		registry:    svc.Registry,
		query:       svc.Query,
		auth:        svc.Auth,
		rateLimit:   rateLimit,
		waitTimeout: waitTimeout,
		logger:      logger,
	}
}

// Handle executes one command and writes its reply. It reports whether
// the connection should close after the reply is flushed.
func (h *CommandHandler) Handle(ctx context.Context, conn *Conn, args [][]byte) (quit bool) {
	name := commandName(args[0])

	switch name {
	case "PING":
		h.handlePing(conn, args)
		return false
	case "QUIT":
		conn.w.Status("OK")
		return true
	case "AUTH":
		h.handleAuth(ctx, conn, args)
		return false
	}

	if h.auth != nil && h.rateLimit > 0 {
		if err := h.auth.CheckRateLimit("resp:"+conn.RemoteIP(), h.rateLimit); err != nil {
			conn.w.Error(errorReply(err))
			return false
		}
	}

	switch name {
	case "CL.REGISTRY":
		h.handleRegistry(ctx, conn, args)
	case "CL.SUPPLY":
		h.handleSupply(ctx, conn, args)
	case "CL.GET":
		h.handleGet(ctx, conn, args)
	case "CL.VERIFY":
		h.handleVerify(ctx, conn, args)
	case "CL.URI":
		h.handleURI(ctx, conn, args)
	case "CL.TOKENS":
		h.handleTokens(ctx, conn, args)
	case "CL.VALID":
		h.handleValid(ctx, conn, args)
	case "CL.MINT":
		if h.authorize(conn) {
			h.handleMint(ctx, conn, args)
		}
	case "CL.SUBMISSION":
		if h.authorize(conn) {
			h.handleSubmission(conn, args)
		}
	default:
		conn.w.Error("ERR unknown command '" + name + "'")
	}
	return false
}

func (h *CommandHandler) authorize(conn *Conn) bool {
	if conn.principal == nil {
		conn.w.Error("NOAUTH Authentication required")
		return false
	}
	if err := h.auth.CheckPermission(conn.principal, domain.RoleIssuer); err != nil {
		conn.w.Error(errorReply(err))
		return false
	}
	return true
}

func wrongArgs(conn *Conn, name string) {
	conn.w.Error("ERR wrong number of arguments for '" + name + "' command")
}

func (h *CommandHandler) handlePing(conn *Conn, args [][]byte) {
	if len(args) > 1 {
		conn.w.Bulk(string(args[1]))
		return
	}
	conn.w.Status("PONG")
}

// handleAuth handles AUTH <key_id> <key_secret> and AUTH <key_id>:<key_secret>.
func (h *CommandHandler) handleAuth(ctx context.Context, conn *Conn, args [][]byte) {
	var keyID, secret string
	switch len(args) {
	case 2:
		var ok bool
		keyID, secret, ok = strings.Cut(string(args[1]), ":")
		if !ok {
			conn.w.Error("ERR invalid AUTH format, expected 'key_id:key_secret' or 'key_id key_secret'")
			return
		}
	case 3:
		keyID, secret = string(args[1]), string(args[2])
	default:
		wrongArgs(conn, "AUTH")
		return
	}

	if h.auth == nil {
		conn.w.Error("ERR authentication is not configured")
		return
	}
	p, err := h.auth.Authenticate(ctx, &service.AuthenticateRequest{
		KeyID:     keyID,
		KeySecret: secret,
		ClientIP:  conn.RemoteIP(),
	})
	if err != nil {
		h.logger.Debug("resp auth failed", "key_id", keyID, "error", err)
		conn.principal = nil
		conn.w.Error("ERR " + domain.ErrAPIKeyInvalid.Code + " invalid credentials")
		return
	}
	conn.principal = p
	conn.w.Status("OK")
}

// CL.REGISTRY replies with field/value pairs.
func (h *CommandHandler) handleRegistry(ctx context.Context, conn *Conn, args [][]byte) {
	if len(args) != 1 {
		wrongArgs(conn, "CL.REGISTRY")
		return
	}
	info, err := h.query.RegistryInfo(ctx)
	if err != nil {
		conn.w.Error(errorReply(err))
		return
	}
	initialized := "0"
	if info.Initialized {
		initialized = "1"
	}
	authority := ""
	if !info.Authority.IsZero() {
		authority = info.Authority.String()
	}
	conn.w.Strings(
		"authority", authority,
		"initialized", initialized,
		"total_supply", strconv.FormatUint(info.TotalSupply, 10),
		"next_id", info.NextID.String(),
		"last_commit", strconv.FormatUint(info.LastCommit, 10),
	)
}

func (h *CommandHandler) handleSupply(ctx context.Context, conn *Conn, args [][]byte) {
	if len(args) != 1 {
		wrongArgs(conn, "CL.SUPPLY")
		return
	}
	n, err := h.query.TotalSupply(ctx)
	if err != nil {
		conn.w.Error(errorReply(err))
		return
	}
	conn.w.Int(int64(n))
}

// CL.GET <id> replies with the claim as JSON, or null when absent.
func (h *CommandHandler) handleGet(ctx context.Context, conn *Conn, args [][]byte) {
	id, ok := tokenArg(conn, args, "CL.GET")
	if !ok {
		return
	}
	desc, err := h.query.DescribeClaim(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			conn.w.Null()
			return
		}
		conn.w.Error(errorReply(err))
		return
	}

	reply := claimReply{ClaimToken: desc.Token}
	if sm, ok := desc.Metadata.(*domain.StructuredMetadata); ok {
		reply.Structured = true
		reply.Metadata = sm
	}
	data, err := json.Marshal(reply)
	if err != nil {
		conn.w.Error(errorReply(err))
		return
	}
	conn.w.Bulk(string(data))
}

// CL.VERIFY <id> replies with [owner, claim_data, metadata_uri].
func (h *CommandHandler) handleVerify(ctx context.Context, conn *Conn, args [][]byte) {
	id, ok := tokenArg(conn, args, "CL.VERIFY")
	if !ok {
		return
	}
	v, err := h.query.VerifyClaim(ctx, id)
	if err != nil {
		conn.w.Error(errorReply(err))
		return
	}
	conn.w.Strings(v.Owner.String(), v.ClaimData, v.MetadataURI)
}

// CL.URI <id> replies with the metadata URI, or null when absent.
func (h *CommandHandler) handleURI(ctx context.Context, conn *Conn, args [][]byte) {
	id, ok := tokenArg(conn, args, "CL.URI")
	if !ok {
		return
	}
	uri, err := h.query.TokenURI(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			conn.w.Null()
			return
		}
		conn.w.Error(errorReply(err))
		return
	}
	conn.w.Bulk(uri)
}

func (h *CommandHandler) handleTokens(ctx context.Context, conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArgs(conn, "CL.TOKENS")
		return
	}
	ids, err := h.query.GetUserTokens(ctx, string(args[1]))
	if err != nil {
		conn.w.Error(errorReply(err))
		return
	}
	conn.w.Array(len(ids))
	for _, id := range ids {
		conn.w.Int(int64(id))
	}
}

func (h *CommandHandler) handleValid(ctx context.Context, conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArgs(conn, "CL.VALID")
		return
	}
	ok, err := h.query.HasValidClaim(ctx, string(args[1]))
	if err != nil {
		conn.w.Error(errorReply(err))
		return
	}
	if ok {
		conn.w.Int(1)
	} else {
		conn.w.Int(0)
	}
}

// CL.MINT <owner> <metadata_uri> <claim_data> [WAIT]
//
// Without WAIT the reply is the submission id. With WAIT it is the
// allocated token id; a submission still unresolved after the wait
// timeout replies "PENDING <submission_id>".
func (h *CommandHandler) handleMint(ctx context.Context, conn *Conn, args [][]byte) {
	if len(args) != 4 && len(args) != 5 {
		wrongArgs(conn, "CL.MINT")
		return
	}
	wait := false
	if len(args) == 5 {
		if commandName(args[4]) != "WAIT" {
			conn.w.Error("ERR syntax error")
			return
		}
		wait = true
	}

	pending, err := h.registry.Mint(ctx, &service.MintRequest{
		Caller:      conn.principal.Address,
		Owner:       string(args[1]),
		MetadataURI: string(args[2]),
		ClaimData:   string(args[3]),
	})
	if err != nil {
		conn.w.Error(errorReply(err))
		return
	}
	if !wait {
		conn.w.Bulk(pending.ID())
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, h.waitTimeout)
	defer cancel()
	conf, err := pending.Await(waitCtx)
	switch {
	case err == nil:
		conn.w.Int(int64(conf.TokenID))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		conn.w.Error("PENDING " + pending.ID())
	default:
		conn.w.Error(errorReply(err))
	}
}

// CL.SUBMISSION <id> replies with field/value pairs describing the handle.
func (h *CommandHandler) handleSubmission(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArgs(conn, "CL.SUBMISSION")
		return
	}
	p, err := h.registry.Submission(string(args[1]))
	if err != nil {
		conn.w.Error(errorReply(err))
		return
	}

	fields := []string{"submission_id", p.ID(), "kind", p.Kind()}
	conf, done, err := p.Status()
	switch {
	case !done:
		fields = append(fields, "status", "pending")
	case err != nil:
		fields = append(fields, "status", "failed", "error", errorReply(err)[len("ERR "):])
	default:
		fields = append(fields, "status", "confirmed",
			"commit_index", strconv.FormatUint(conf.CommitIndex, 10))
		if conf.TokenID != 0 {
			fields = append(fields, "token_id", conf.TokenID.String())
		}
	}
	conn.w.Strings(fields...)
}

func tokenArg(conn *Conn, args [][]byte, name string) (domain.TokenID, bool) {
	if len(args) != 2 {
		wrongArgs(conn, name)
		return 0, false
	}
	id, err := domain.ParseTokenID(string(args[1]))
	if err != nil {
		conn.w.Error(errorReply(err))
		return 0, false
	}
	return id, true
}
