package handlers

import (
	"net/http"

	"github.com/BaSui01/seriesflow/generator"
	"go.uber.org/zap"
)

// GeneratorHandler 暴露生成器目录，内容与协调操作 service_types? / service_choice 一致
type GeneratorHandler struct {
	registry *generator.Registry
	logger   *zap.Logger
}

// NewGeneratorHandler 创建生成器目录处理器
func NewGeneratorHandler(registry *generator.Registry, logger *zap.Logger) *GeneratorHandler {
	return &GeneratorHandler{registry: registry, logger: logger}
}

// HandleList 处理 GET /v1/generators，返回 handle → 描述
func (h *GeneratorHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.registry.Describe())
}

// HandleSpec 处理 GET /v1/generators/{handle}，返回参数规格
func (h *GeneratorHandler) HandleSpec(w http.ResponseWriter, r *http.Request) {
	gen, err := h.registry.Lookup(r.PathValue("handle"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, gen.Spec())
}
