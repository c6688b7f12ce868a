package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/cacheflow/api"
	"github.com/BaSui01/cacheflow/cache"
	"go.uber.org/zap"
)

// =============================================================================
// Cache Management Handler
// =============================================================================

// CacheAdmin is the management surface the cache handlers drive. The
// provider-backed runtime implements it; tests substitute a fake.
type CacheAdmin interface {
	// CacheNames lists the registered cache names.
	CacheNames() ([]string, error)

	// CreateCache creates a cache under name. An empty store selects the
	// configured template or default store.
	CreateCache(ctx context.Context, name, store string, cfg cache.Config) (cache.Cache, error)

	// ResolveCache finds the cache registered under name, whatever its
	// signature. A miss returns ok=false without error.
	ResolveCache(name string) (cache.Cache, bool, error)

	// DestroyCache removes and tears down every cache under name.
	DestroyCache(ctx context.Context, name string) error
}

// CacheHandler cache management handler
type CacheHandler struct {
	admin  CacheAdmin
	logger *zap.Logger
}

// NewCacheHandler creates a cache management handler
func NewCacheHandler(admin CacheAdmin, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{
		admin:  admin,
		logger: logger,
	}
}

// =============================================================================
// HTTP Handlers
// =============================================================================

// HandleCaches routes the cache collection endpoint (list + create)
// @Summary List or create caches
// @Description GET lists registered caches, POST creates a new one
// @Tags cache
// @Accept json
// @Produce json
// @Param request body api.CreateCacheRequest false "Create request (POST)"
// @Success 200 {object} Response{data=[]api.CacheInfo} "Cache list"
// @Success 201 {object} Response{data=api.CacheInfo} "Cache created"
// @Failure 400 {object} Response "Invalid request"
// @Failure 409 {object} Response "Cache already exists"
// @Security ApiKeyAuth
// @Router /api/v1/caches [get]
func (h *CacheHandler) HandleCaches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListCaches(w, r)
	case http.MethodPost:
		h.handleCreateCache(w, r)
	default:
		WriteErrorMessage(w, http.StatusMethodNotAllowed, cache.ErrCodeInvalidArgument, "method not allowed", h.logger)
	}
}

// HandleCache routes the single-cache endpoint (info + destroy)
// @Summary Get or destroy a cache
// @Description GET returns cache info, DELETE destroys the cache and all its entries
// @Tags cache
// @Produce json
// @Param name path string true "Cache name"
// @Success 200 {object} Response{data=api.CacheInfo} "Cache info"
// @Failure 404 {object} Response "Cache not found"
// @Failure 409 {object} Response "Manager closed"
// @Security ApiKeyAuth
// @Router /api/v1/caches/{name} [get]
func (h *CacheHandler) HandleCache(w http.ResponseWriter, r *http.Request) {
	name := extractCacheName(r)
	if name == "" {
		WriteErrorMessage(w, http.StatusBadRequest, cache.ErrCodeInvalidArgument, "cache name is required", h.logger)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGetCache(w, r, name)
	case http.MethodDelete:
		h.handleDestroyCache(w, r, name)
	default:
		WriteErrorMessage(w, http.StatusMethodNotAllowed, cache.ErrCodeInvalidArgument, "method not allowed", h.logger)
	}
}

// HandleClear clears all entries of a cache without destroying it
// @Summary Clear cache
// @Description Remove all entries from the cache, keeping the cache itself
// @Tags cache
// @Produce json
// @Param name path string true "Cache name"
// @Success 200 {object} Response{data=map[string]string} "Cleared"
// @Failure 404 {object} Response "Cache not found"
// @Security ApiKeyAuth
// @Router /api/v1/caches/{name}/clear [post]
func (h *CacheHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, cache.ErrCodeInvalidArgument, "method not allowed", h.logger)
		return
	}

	name := extractCacheName(r)
	if name == "" {
		WriteErrorMessage(w, http.StatusBadRequest, cache.ErrCodeInvalidArgument, "cache name is required", h.logger)
		return
	}

	c, ok, err := h.admin.ResolveCache(name)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if !ok {
		WriteErrorMessage(w, http.StatusNotFound, codeNotFound, "cache "+strconv.Quote(name)+" not found", h.logger)
		return
	}

	if err := c.Clear(r.Context()); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("cache cleared via API", zap.String("cache", name))
	WriteSuccess(w, map[string]string{"cache": name, "status": "cleared"})
}

// HandleEntry routes the entry endpoint (get + put + delete)
// @Summary Access a cache entry
// @Description GET reads, PUT writes, DELETE removes a single entry
// @Tags cache
// @Accept json
// @Produce json
// @Param name path string true "Cache name"
// @Param key path string true "Entry key"
// @Param request body api.EntryRequest false "Entry value (PUT)"
// @Success 200 {object} Response{data=api.EntryResponse} "Entry"
// @Failure 400 {object} Response "Invalid key or value"
// @Failure 404 {object} Response "Cache or entry not found"
// @Failure 409 {object} Response "Type mismatch"
// @Security ApiKeyAuth
// @Router /api/v1/caches/{name}/entries/{key} [get]
func (h *CacheHandler) HandleEntry(w http.ResponseWriter, r *http.Request) {
	name := extractCacheName(r)
	key := extractEntryKey(r)
	if name == "" || key == "" {
		WriteErrorMessage(w, http.StatusBadRequest, cache.ErrCodeInvalidArgument, "cache name and entry key are required", h.logger)
		return
	}

	c, ok, err := h.admin.ResolveCache(name)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if !ok {
		WriteErrorMessage(w, http.StatusNotFound, codeNotFound, "cache "+strconv.Quote(name)+" not found", h.logger)
		return
	}

	typedKey, err := coerceKey(c.KeyType(), key)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGetEntry(w, r, c, name, key, typedKey)
	case http.MethodPut:
		h.handlePutEntry(w, r, c, name, key, typedKey)
	case http.MethodDelete:
		h.handleDeleteEntry(w, r, c, name, key, typedKey)
	default:
		WriteErrorMessage(w, http.StatusMethodNotAllowed, cache.ErrCodeInvalidArgument, "method not allowed", h.logger)
	}
}

// =============================================================================
// Operation implementations
// =============================================================================

func (h *CacheHandler) handleListCaches(w http.ResponseWriter, r *http.Request) {
	names, err := h.admin.CacheNames()
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	result := make([]api.CacheInfo, 0, len(names))
	for _, name := range names {
		c, ok, err := h.admin.ResolveCache(name)
		if err != nil {
			WriteError(w, err, h.logger)
			return
		}
		if !ok {
			// Destroyed between the listing and the lookup.
			continue
		}
		result = append(result, toCacheInfo(c))
	}

	WriteSuccess(w, result)
}

func (h *CacheHandler) handleCreateCache(w http.ResponseWriter, r *http.Request) {
	var req api.CreateCacheRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		WriteErrorMessage(w, http.StatusBadRequest, cache.ErrCodeInvalidArgument, "name is required", h.logger)
		return
	}

	cfg, err := buildCacheConfig(req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	c, err := h.admin.CreateCache(r.Context(), req.Name, req.Store, cfg)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("cache created via API",
		zap.String("cache", req.Name),
		zap.String("store", req.Store),
	)

	WriteJSON(w, http.StatusCreated, Response{
		Success:   true,
		Data:      toCacheInfo(c),
		Timestamp: time.Now(),
		RequestID: requestID(w),
	})
}

func (h *CacheHandler) handleGetCache(w http.ResponseWriter, r *http.Request, name string) {
	c, ok, err := h.admin.ResolveCache(name)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if !ok {
		WriteErrorMessage(w, http.StatusNotFound, codeNotFound, "cache "+strconv.Quote(name)+" not found", h.logger)
		return
	}

	WriteSuccess(w, toCacheInfo(c))
}

func (h *CacheHandler) handleDestroyCache(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.admin.DestroyCache(r.Context(), name); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("cache destroyed via API", zap.String("cache", name))
	WriteSuccess(w, map[string]string{"cache": name, "status": "destroyed"})
}

func (h *CacheHandler) handleGetEntry(w http.ResponseWriter, r *http.Request, c cache.Cache, name, rawKey string, key any) {
	value, err := c.Get(r.Context(), key)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, api.EntryResponse{
		Cache:       name,
		Key:         rawKey,
		Value:       value,
		RetrievedAt: time.Now(),
	})
}

func (h *CacheHandler) handlePutEntry(w http.ResponseWriter, r *http.Request, c cache.Cache, name, rawKey string, key any) {
	var req api.EntryRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	value, err := decodeValue(c.ValueType(), req.Value)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	if err := c.Put(r.Context(), key, value); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, api.EntryResponse{
		Cache: name,
		Key:   rawKey,
		Value: value,
	})
}

func (h *CacheHandler) handleDeleteEntry(w http.ResponseWriter, r *http.Request, c cache.Cache, name, rawKey string, key any) {
	if err := c.Remove(r.Context(), key); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]string{"cache": name, "key": rawKey, "status": "removed"})
}

// =============================================================================
// Helpers
// =============================================================================

func toCacheInfo(c cache.Cache) api.CacheInfo {
	return api.CacheInfo{
		Name:      c.Name(),
		KeyType:   cache.HintFor(c.KeyType()),
		ValueType: cache.HintFor(c.ValueType()),
	}
}

// buildCacheConfig translates the wire request into a cache config.
func buildCacheConfig(req api.CreateCacheRequest) (cache.Config, error) {
	keyType, err := cache.TypeFromHint(req.KeyType)
	if err != nil {
		return cache.Config{}, err
	}
	valueType, err := cache.TypeFromHint(req.ValueType)
	if err != nil {
		return cache.Config{}, err
	}

	cfg := cache.Config{
		KeyType:   keyType,
		ValueType: valueType,
		Capacity:  req.Capacity,
	}
	if cfg.Capacity < 0 {
		return cache.Config{}, cache.Errorf(cache.ErrCodeInvalidArgument, "capacity must not be negative, got %d", req.Capacity)
	}
	if req.TTL != "" {
		ttl, err := time.ParseDuration(req.TTL)
		if err != nil {
			return cache.Config{}, cache.Errorf(cache.ErrCodeInvalidArgument, "invalid ttl %q", req.TTL).WithCause(err)
		}
		if ttl < 0 {
			return cache.Config{}, cache.Errorf(cache.ErrCodeInvalidArgument, "ttl must not be negative, got %s", ttl)
		}
		cfg.TTL = ttl
	}
	return cfg, nil
}

// coerceKey converts the path key segment to the cache's declared key
// type. Only kinds with an unambiguous string form can be addressed by
// URL path.
func coerceKey(keyType reflect.Type, raw string) (any, error) {
	if keyType == cache.WildcardType {
		return raw, nil
	}

	switch keyType.Kind() {
	case reflect.String:
		return reflect.ValueOf(raw).Convert(keyType).Interface(), nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, keyType.Bits())
		if err != nil {
			return nil, cache.Errorf(cache.ErrCodeInvalidArgument, "key %q is not a valid %s", raw, keyType).WithCause(err)
		}
		return reflect.ValueOf(n).Convert(keyType).Interface(), nil
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, cache.Errorf(cache.ErrCodeInvalidArgument, "key %q is not a valid %s", raw, keyType).WithCause(err)
		}
		return reflect.ValueOf(f).Convert(keyType).Interface(), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, cache.Errorf(cache.ErrCodeInvalidArgument, "key %q is not a valid %s", raw, keyType).WithCause(err)
		}
		return b, nil
	default:
		return nil, cache.Errorf(cache.ErrCodeInvalidArgument, "cache key type %s cannot be addressed by URL path", keyType)
	}
}

// decodeValue unmarshals the raw JSON payload into the cache's declared
// value type.
func decodeValue(valueType reflect.Type, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, cache.NewError(cache.ErrCodeInvalidArgument, "entry value is required")
	}

	if valueType == cache.WildcardType {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, cache.NewError(cache.ErrCodeInvalidArgument, "invalid entry value").WithCause(err)
		}
		if v == nil {
			return nil, cache.NewError(cache.ErrCodeInvalidArgument, "entry value must not be null")
		}
		return v, nil
	}

	ptr := reflect.New(valueType)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, cache.Errorf(cache.ErrCodeInvalidArgument, "entry value does not decode as %s", valueType).WithCause(err)
	}
	return ptr.Elem().Interface(), nil
}

// extractCacheName extracts the cache name from the URL path.
// Supports both /api/v1/caches/{name} (PathValue) and manual parsing.
func extractCacheName(r *http.Request) string {
	if name := r.PathValue("name"); name != "" {
		return name
	}
	// 回退：从路径手动解析
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/caches/")
	if rest == r.URL.Path || rest == "" {
		return ""
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// extractEntryKey extracts the entry key from the URL path.
func extractEntryKey(r *http.Request) string {
	if key := r.PathValue("key"); key != "" {
		return key
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/caches/"), "/")
	if len(parts) == 3 && parts[1] == "entries" {
		return parts[2]
	}
	return ""
}
