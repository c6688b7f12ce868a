package contracts

import (
	"bufio"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestOpenAPIPathsMatchRuntimeRoutes(t *testing.T) {
	repoRoot := resolveRepoRoot(t)

	runtimeRoutes := mustParseMuxRoutes(t, filepath.Join(repoRoot, "internal", "server", "routes.go"))
	docRoutes := mustParseOpenAPIPaths(t, filepath.Join(repoRoot, "api", "openapi.yaml"))

	runtimeSorted := sortedRouteKeys(runtimeRoutes)
	docSorted := sortedRouteKeys(docRoutes)

	if !reflect.DeepEqual(runtimeSorted, docSorted) {
		t.Fatalf("openapi paths mismatch runtime routes\nopenapi=%v\nruntime=%v", docSorted, runtimeSorted)
	}
}

func resolveRepoRoot(t *testing.T) string {
	t.Helper()
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to resolve current file")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(currentFile), "..", ".."))
}

// mustParseMuxRoutes 从路由注册源码中抽取 ServeMux 模式。
// 形如 "GET /health" 的模式会剥掉方法前缀，只留路径部分。
func mustParseMuxRoutes(t *testing.T, path string) map[string]struct{} {
	t.Helper()

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open route source %s: %v", path, err)
	}
	defer file.Close()

	routePattern := regexp.MustCompile(`^\s*mux\.Handle(?:Func)?\("([^"]+)"`)
	routes := make(map[string]struct{})

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "//") {
			continue
		}
		match := routePattern.FindStringSubmatch(line)
		if len(match) != 2 {
			continue
		}
		pattern := match[1]
		if fields := strings.Fields(pattern); len(fields) > 1 {
			pattern = fields[len(fields)-1]
		}
		routes[pattern] = struct{}{}
	}

	if err := scanner.Err(); err != nil {
		t.Fatalf("scan route source %s: %v", path, err)
	}

	return routes
}

func mustParseOpenAPIPaths(t *testing.T, path string) map[string]struct{} {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read openapi file %s: %v", path, err)
	}

	var doc struct {
		Paths map[string]any `yaml:"paths"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse openapi file %s: %v", path, err)
	}

	if len(doc.Paths) == 0 {
		t.Fatalf("openapi file %s declares no paths", path)
	}

	routes := make(map[string]struct{}, len(doc.Paths))
	for route := range doc.Paths {
		routes[route] = struct{}{}
	}

	return routes
}

func sortedRouteKeys(routes map[string]struct{}) []string {
	keys := make([]string, 0, len(routes))
	for route := range routes {
		keys = append(keys, route)
	}
	sort.Strings(keys)
	return keys
}
