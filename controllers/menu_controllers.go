package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/catalog"
	"github.com/yeremiapane/restaurant-booking/utils"
)

type MenuController struct {
	Catalog *catalog.Catalog
}

func NewMenuController(c *catalog.Catalog) *MenuController {
	return &MenuController{Catalog: c}
}

// GetMenus filters by category and a case-insensitive search term.
func (mc *MenuController) GetMenus(c *gin.Context) {
	dishes := mc.Catalog.Filter(c.Query("category"), c.Query("search"))
	utils.RespondJSON(c, http.StatusOK, "List of menus", dishes)
}

func (mc *MenuController) GetMenuByID(c *gin.Context) {
	dish, ok := mc.Catalog.Get(c.Param("menu_id"))
	if !ok {
		utils.RespondError(c, http.StatusNotFound, errMenuNotFound)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu detail", dish)
}

func (mc *MenuController) GetCategories(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Menu categories", mc.Catalog.Categories())
}
