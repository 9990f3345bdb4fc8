package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/maestro-api/internal/middleware"
	"github.com/Conceptual-Machines/maestro-api/internal/models"
	"github.com/Conceptual-Machines/maestro-api/internal/services"
)

type GrammarsHandler struct {
	grammars *services.GrammarService
}

func NewGrammarsHandler(grammars *services.GrammarService) *GrammarsHandler {
	return &GrammarsHandler{grammars: grammars}
}

// Upload stores a grammar definition. The definition is compiled before
// it is accepted, so a stored grammar is always parseable.
func (h *GrammarsHandler) Upload(c *gin.Context) {
	var def models.GrammarDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, warnings, err := h.grammars.Upload(c.Request.Context(), &def, middleware.CurrentUserID(c))
	if err != nil {
		c.JSON(statusForServiceError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"grammar":  record,
		"warnings": warnings,
	})
}

// List returns all stored grammars plus the builtin one
func (h *GrammarsHandler) List(c *gin.Context) {
	records, err := h.grammars.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch grammars"})
		return
	}

	builtin := h.grammars.Builtin()
	c.JSON(http.StatusOK, gin.H{
		"builtin": gin.H{
			"name":         builtin.Name(),
			"start_symbol": builtin.StartSymbol(),
			"rule_count":   len(builtin.Rules()),
		},
		"grammars": records,
		"count":    len(records),
	})
}

// Get returns one stored grammar record including its definition
func (h *GrammarsHandler) Get(c *gin.Context) {
	record, err := h.grammars.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(statusForServiceError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"grammar": record})
}

// Delete soft deletes a stored grammar
func (h *GrammarsHandler) Delete(c *gin.Context) {
	if err := h.grammars.Delete(c.Request.Context(), c.Param("name")); err != nil {
		c.JSON(statusForServiceError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Grammar deleted successfully"})
}
