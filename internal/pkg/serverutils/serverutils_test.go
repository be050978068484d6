package serverutils

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"thrx-be/pkg/ai/pipeline"
	"thrx-be/pkg/conversation"
	"thrx-be/pkg/llm/ollama"
	"thrx-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{pipeline.ErrEmptyInput, 204},
		{fmt.Errorf("chat c1: %w", store.ErrNotFound), 404},
		{conversation.ErrTurnInProgress, 409},
		{ollama.ErrEngineBusy, 409},
		{conversation.ErrSiblingOutOfRange, 422},
		{&ValidationError{Fields: map[string]string{"Model": "is required"}}, 400},
		{fiber.NewError(fiber.StatusTeapot, "tea"), 418},
		{fmt.Errorf("boom"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

type loadReq struct {
	Model string `json:"model" validate:"required"`
	Kind  string `json:"kind" validate:"omitempty,oneof=image file audio"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(loadReq{Model: "phi3.5:latest"}))

	err := ValidateRequest(loadReq{Kind: "video"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is required", verr.Fields["loadReq.Model"])
	assert.Equal(t, "must be one of image file audio", verr.Fields["loadReq.Kind"])
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/busy", func(c *fiber.Ctx) error { return conversation.ErrTurnInProgress })
	app.Get("/empty", func(c *fiber.Ctx) error { return pipeline.ErrEmptyInput })
	app.Get("/ok", func(c *fiber.Ctx) error { return c.JSON(SuccessResponse("fine", 1)) })

	resp, err := app.Test(httptest.NewRequest("GET", "/busy", nil))
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)
	var body BaseResponse[any]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, 409, body.Code)
	assert.Equal(t, conversation.ErrTurnInProgress.Error(), body.Message)

	resp, err = app.Test(httptest.NewRequest("GET", "/empty", nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	var ok BaseResponse[int]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ok))
	assert.True(t, ok.Success)
	assert.Equal(t, 1, ok.Data)
}
