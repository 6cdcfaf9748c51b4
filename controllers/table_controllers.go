package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/models"
	"github.com/yeremiapane/restaurant-booking/services"
	"github.com/yeremiapane/restaurant-booking/utils"
)

type TableController struct {
	Tables *services.TableService
}

func NewTableController(tables *services.TableService) *TableController {
	return &TableController{Tables: tables}
}

// CreateTable -> status defaults to Available, floor to Ground
func (tc *TableController) CreateTable(c *gin.Context) {
	var req services.TableInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Tables.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("New table created: %d (status=%s)", table.Number, table.Status)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables accepts floor, status and search filters.
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Tables.List(c.Request.Context(), services.TableFilter{
		Floor:  c.Query("floor"),
		Status: c.Query("status"),
		Search: c.Query("search"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) GetTableByID(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Tables.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

func (tc *TableController) UpdateTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	var req services.TableInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	table, err := tc.Tables.Update(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Tables.SetStatus(c.Request.Context(), id, models.TableStatus(body.Status))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Table %d status changed to %s", table.ID, table.Status)
	utils.RespondJSON(c, http.StatusOK, "Table status updated", table)
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	if err := tc.Tables.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Table %d deleted", id)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": id})
}
