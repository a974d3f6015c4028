package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card_market_v1/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		kind service.ErrorKind
		want int
	}{
		{service.KindValidation, http.StatusBadRequest},
		{service.KindConflict, http.StatusConflict},
		{service.KindInsufficientStock, http.StatusConflict},
		{service.KindInvalidTransition, http.StatusConflict},
		{service.KindForbidden, http.StatusForbidden},
		{service.KindNotFound, http.StatusNotFound},
		{service.KindUnauthorized, http.StatusUnauthorized},
		{service.KindServer, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.kind))
		})
	}
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"库存不足带商品名", service.NewInsufficientStockError("皮卡丘"), http.StatusConflict, ""},
		{"未找到", service.ErrOrderNotFound, http.StatusNotFound, "订单不存在或无权操作"},
		{"包装后的业务错误", fmt.Errorf("checkout: %w", service.ErrEmptyCart), http.StatusBadRequest, ""},
		{"未知错误隐藏细节", fmt.Errorf("dial tcp: connection refused"), http.StatusInternalServerError, "服务器内部错误，请稍后重试"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)

			require.Equal(t, tt.status, w.Code)
			var body struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
			assert.NotContains(t, body.Message, "connection refused")
		})
	}
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"12", true},
		{"0", false},
		{"-3", false},
		{"abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: tt.raw}}
			_, ok := parseIDParam(c, "id")
			assert.Equal(t, tt.want, ok)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}
