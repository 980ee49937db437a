package handler

import (
	"net/http"

	"workshop/internal/access"
	"workshop/internal/middleware"
	"workshop/internal/service"
	"workshop/pkg/pagination"
	"workshop/pkg/response"

	"github.com/gin-gonic/gin"
)

type StockDeltaRequest struct {
	Delta int `json:"delta"`
}

type StockQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/products")
	{
		products.GET("", middleware.Require(access.ProductRead), h.GetProducts)
		products.GET("/:id", middleware.Require(access.ProductRead), h.GetProduct)
		products.POST("", middleware.Require(access.ProductWrite), h.CreateProduct)
		products.PUT("/:id", middleware.Require(access.ProductWrite), h.UpdateProduct)
		products.DELETE("/:id", middleware.Require(access.ProductWrite), h.DeleteProduct)
		products.POST("/:id/stock/adjust", middleware.Require(access.StockAdjust), h.AdjustStock)
		products.PUT("/:id/stock", middleware.Require(access.StockAdjust), h.SetStock)
		products.GET("/:id/stock/history", middleware.Require(access.StockHistory), h.StockHistory)
		products.POST("/:id/launch", middleware.Require(access.ProductionLaunch), h.LaunchProduction)
	}
}

// GetProducts lists the catalog, optionally filtered by a name search
// @Summary      List products
// @Description  Lists the catalog with current stock
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        search     query  string   false  "Search by product name"
// @Param        page       query  integer  false  "Page number (default 1)"
// @Param        limit      query  integer  false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=pagination.Page}
// @Failure      403  {object}  response.Response
// @Router       /api/products [get]
func (h *ProductHandler) GetProducts(c *gin.Context) {
	p := pagination.Parse(c)
	products, total, err := h.productService.ListProducts(c.Request.Context(), middleware.ActorFrom(c), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(products, total)))
}

// GetProduct get product
// @Summary      Get product
// @Description  Returns one product with its production stages
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id         path   string   true   "Product ID"
// @Success      200  {object}  response.Response{data=model.Product}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.GetProduct(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// CreateProduct create product
// @Summary      Create product
// @Description  Creates a product and its ordered production stages
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload    body   service.CreateProductRequest  true  "Payload"
// @Success      201  {object}  response.Response{data=model.Product}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	product, err := h.productService.CreateProduct(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct update product
// @Summary      Update product
// @Description  Updates product details and, when given, replaces its stages
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id         path   string   true   "Product ID"
// @Param        payload    body   service.UpdateProductRequest  true  "Payload"
// @Success      200  {object}  response.Response{data=model.Product}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	product, err := h.productService.UpdateProduct(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct delete product
// @Summary      Delete product
// @Description  Deletes a product no order refers to
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id         path   string   true   "Product ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.productService.DeleteProduct(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": id}))
}

// AdjustStock adjust stock
// @Summary      Adjust stock
// @Description  Adds delta to the stock. The result may not go below zero
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id         path   string   true   "Product ID"
// @Param        payload    body   handler.StockDeltaRequest  true  "Payload"
// @Success      200  {object}  response.Response{data=service.StockChange}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/products/{id}/stock/adjust [post]
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req StockDeltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	change, err := h.productService.AdjustStock(c.Request.Context(), middleware.ActorFrom(c), id, req.Delta)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, change))
}

// SetStock set stock
// @Summary      Set stock
// @Description  Sets the stock to an absolute quantity
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id         path   string   true   "Product ID"
// @Param        payload    body   handler.StockQuantityRequest  true  "Payload"
// @Success      200  {object}  response.Response{data=service.StockChange}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/stock [put]
func (h *ProductHandler) SetStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req StockQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	change, err := h.productService.SetStock(c.Request.Context(), middleware.ActorFrom(c), id, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, change))
}

// LaunchProduction launch production
// @Summary      Launch production
// @Description  Records a production batch and adds it to stock
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id         path   string   true   "Product ID"
// @Param        payload    body   handler.StockQuantityRequest  true  "Payload"
// @Success      200  {object}  response.Response{data=service.StockChange}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/launch [post]
func (h *ProductHandler) LaunchProduction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req StockQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	change, err := h.productService.LaunchProduction(c.Request.Context(), middleware.ActorFrom(c), id, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, change))
}

// StockHistory stock history
// @Summary      Stock history
// @Description  Lists the stock journal of a product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id         path   string   true   "Product ID"
// @Param        page       query  integer  false  "Page number (default 1)"
// @Param        limit      query  integer  false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=pagination.Page}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/stock/history [get]
func (h *ProductHandler) StockHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p := pagination.Parse(c)
	entries, total, err := h.productService.StockHistory(c.Request.Context(), middleware.ActorFrom(c), id, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(entries, total)))
}
