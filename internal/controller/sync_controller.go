package controller

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"wiki-rag-be/internal/dto"
	"wiki-rag-be/internal/pkg/serverutils"
	"wiki-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const signatureHeader = "X-Wiki-Signature"

type ISyncController interface {
	RegisterRoutes(r fiber.Router)
	StartRefresh(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Webhook(ctx *fiber.Ctx) error
}

type syncController struct {
	syncService   service.ISyncService
	webhookSecret string
}

func NewSyncController(syncService service.ISyncService, webhookSecret string) ISyncController {
	return &syncController{
		syncService:   syncService,
		webhookSecret: webhookSecret,
	}
}

func (c *syncController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sync/v1")
	h.Post("refresh", serverutils.JwtMiddleware, c.StartRefresh)
	h.Get("status", serverutils.JwtMiddleware, c.Status)
	// The webhook authenticates by signature, not by token.
	h.Post("webhook", c.Webhook)
}

func (c *syncController) StartRefresh(ctx *fiber.Ctx) error {
	res, err := c.syncService.StartRefresh(ctx.Context())
	if err != nil {
		if errors.Is(err, service.ErrRefreshInProgress) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Refresh started", res))
}

func (c *syncController) Status(ctx *fiber.Ctx) error {
	res, err := c.syncService.Status(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get refresh status", res))
}

// Webhook verifies the HMAC-SHA256 signature over the raw body before any
// payload field is even parsed. A bad signature causes no side effects.
func (c *syncController) Webhook(ctx *fiber.Ctx) error {
	body := ctx.Body()

	if !c.verifySignature(body, ctx.Get(signatureHeader)) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid webhook signature")
	}

	var payload dto.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed webhook payload")
	}
	if err := serverutils.ValidateRequest(payload); err != nil {
		return err
	}

	if err := c.syncService.HandleWebhook(ctx.Context(), &payload); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Webhook processed", nil))
}

func (c *syncController) verifySignature(body []byte, signature string) bool {
	if c.webhookSecret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
