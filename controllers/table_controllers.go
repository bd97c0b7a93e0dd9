package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type TableController struct {
	Tables *services.TableService
}

func NewTableController(svc *services.Services) *TableController {
	return &TableController{Tables: svc.Tables}
}

type tableStats struct {
	Total    int `json:"total"`
	Free     int `json:"free"`
	Occupied int `json:"occupied"`
}

func statsOf(tables []models.Table) tableStats {
	s := tableStats{Total: len(tables)}
	for _, t := range tables {
		if t.Status == models.TableOcupada {
			s.Occupied++
		} else {
			s.Free++
		}
	}
	return s
}

func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		Number   int `json:"number" binding:"required"`
		Capacity int `json:"capacity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	table, err := tc.Tables.CreateTable(c.Request.Context(), req.Number, req.Capacity)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastTableUpdate(*table)
	utils.InfoLogger.Printf("New table created: %d", table.Number)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Tables.ListTables(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", gin.H{
		"tables": tables,
		"stats":  statsOf(tables),
	})
}

func (tc *TableController) GetTableByID(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Tables.GetTable(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

func (tc *TableController) OpenTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Tables.OpenTable(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	kds.BroadcastTableUpdate(*table)
	utils.RespondJSON(c, http.StatusOK, "Table opened", table)
}

// CloseTable frees a table once its order has been paid.
func (tc *TableController) CloseTable(c *gin.Context) {
	id, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Tables.CloseTable(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	kds.BroadcastTableUpdate(*table)
	utils.RespondJSON(c, http.StatusOK, "Table closed", table)
}

func (tc *TableController) MergeTables(c *gin.Context) {
	var req struct {
		TableIDs []uint `json:"table_ids" binding:"required"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	group, tables, err := tc.Tables.MergeTables(c.Request.Context(), req.TableIDs, req.Name, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastTableGroup(*group)
	kds.BroadcastTableUpdate(tables...)
	utils.RespondJSON(c, http.StatusCreated, "Tables merged", gin.H{
		"group":  group,
		"tables": tables,
	})
}

func (tc *TableController) SplitGroup(c *gin.Context) {
	id, ok := paramID(c, "group_id")
	if !ok {
		return
	}
	group, tables, err := tc.Tables.SplitGroup(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastTableGroup(*group)
	kds.BroadcastTableUpdate(tables...)
	utils.RespondJSON(c, http.StatusOK, "Table group split", gin.H{
		"group":  group,
		"tables": tables,
	})
}

// GetGroups -> ?active=true returns only groups not yet dissolved
func (tc *TableController) GetGroups(c *gin.Context) {
	groups, err := tc.Tables.ListGroups(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of table groups", groups)
}

func (tc *TableController) GetGroupHistory(c *gin.Context) {
	id, ok := paramID(c, "group_id")
	if !ok {
		return
	}
	history, err := tc.Tables.History(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table group history", history)
}
