package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"menumatch/internal/services"
)

// Check names used in results and CLI output.
const (
	DescriberName = "Describer (Azure OpenAI)"
	TaggerName    = "Tagger (Azure AI Vision)"
)

const describerCheckTimeout = 30 * time.Second

// CheckDescriber verifies the chat deployment answers a trivial prompt.
// Callers should pass a client configured for a single attempt.
func CheckDescriber(ctx context.Context, checker HealthChecker) Result {
	checkCtx, cancel := context.WithTimeout(ctx, describerCheckTimeout)
	defer cancel()

	if err := checker.HealthCheck(checkCtx); err != nil {
		return Result{Name: DescriberName, Detail: summarizeServiceError(err)}
	}
	return Result{Name: DescriberName, Passed: true, Detail: "API reachable"}
}

// CheckTagger verifies the vision resource has an endpoint and key. No
// request is made.
func CheckTagger(checker AvailabilityChecker) Result {
	if !checker.Available() {
		return Result{Name: TaggerName, Detail: "endpoint or key missing"}
	}
	return Result{Name: TaggerName, Passed: true, Detail: "credentials configured"}
}

// CheckDirectoryAccess verifies that the directory is readable and writable.
// A missing directory passes when its nearest existing parent is writable,
// since runs create it on demand.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, unix.ENOTDIR) {
			parent := nearestExistingParent(path)
			if parent != "" && unix.Access(parent, unix.W_OK|unix.X_OK) == nil {
				return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
			}
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist and cannot be created)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckReadableDir verifies the directory exists and can be listed.
func CheckReadableDir(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckReadableFile verifies a regular file exists and can be read.
func CheckReadableFile(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

func nearestExistingParent(path string) string {
	dir := filepath.Clean(path)
	for {
		next := filepath.Dir(dir)
		if next == dir {
			return ""
		}
		dir = next
		info, err := os.Stat(dir)
		if err == nil {
			if info.IsDir() {
				return dir
			}
			return ""
		}
	}
}

// summarizeServiceError produces a human-readable summary for health check failures.
func summarizeServiceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	if errors.Is(err, services.ErrConfiguration) {
		return "configuration rejected: " + err.Error()
	}
	return err.Error()
}
