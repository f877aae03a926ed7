// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs a local DBpedia Spotlight service in a Docker or
// Podman container, so the linker can use an endpoint without the public
// service's rate limits.
package container

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// DefaultImage is the published DBpedia Spotlight image.
const DefaultImage = "dbpedia/dbpedia-spotlight"

// servicePort is the port the service listens on inside the container.
const servicePort = 80

// Service describes a local Spotlight container.
type Service struct {
	// Name is the container name (default "spotlight-{language}").
	Name string

	// Image is the container image (default DefaultImage).
	Image string

	// Language is the model language loaded at startup.
	Language string

	// Port is the host port mapped to the service (default 2222).
	Port int
}

// withDefaults fills empty fields.
func (s Service) withDefaults() Service {
	if s.Language == "" {
		s.Language = "en"
	}
	if s.Image == "" {
		s.Image = DefaultImage
	}
	if s.Port == 0 {
		s.Port = 2222
	}
	if s.Name == "" {
		s.Name = "spotlight-" + s.Language
	}
	return s
}

// Endpoint returns the REST endpoint for LinkerConfig.Endpoint.
func (s Service) Endpoint() string {
	s = s.withDefaults()
	return fmt.Sprintf("http://localhost:%d/rest", s.Port)
}

// Runtime provides the container operations needed to manage a Service.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available() bool

	// ImageExists checks whether the named image exists locally.
	ImageExists(image string) error

	// Start runs the service detached and returns the container ID.
	Start(svc Service) (string, error)

	// Stop stops the named container. Containers are started with --rm, so
	// stopping also removes them.
	Stop(name string) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	Output(name string, args ...string) (string, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) Output(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	return strings.TrimSpace(string(out)), err
}

// runtime implements Runtime for a specific container binary. Docker and
// Podman differ only in binary name and the image existence subcommand.
type runtime struct {
	bin           string
	imageCheckCmd []string // e.g. ["image", "inspect"] for docker
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) ImageExists(image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Start(svc Service) (string, error) {
	svc = svc.withDefaults()
	args := []string{
		"run", "-d", "--rm",
		"--name", svc.Name,
		"-p", fmt.Sprintf("%d:%d", svc.Port, servicePort),
		svc.Image,
		"spotlight.sh", svc.Language,
	}
	id, err := r.exec.Output(r.bin, args...)
	if err != nil {
		return "", fmt.Errorf("starting %s container %s: %w", r.bin, svc.Name, err)
	}
	return id, nil
}

func (r *runtime) Stop(name string) error {
	if err := r.exec.RunSilent(r.bin, "stop", name); err != nil {
		return fmt.Errorf("stopping %s container %s: %w", r.bin, name, err)
	}
	return nil
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

// Up starts svc on rt and reports whether its image was missing locally, in
// which case the runtime pulls it as part of the start.
func Up(rt Runtime, svc Service) (id string, pulled bool, err error) {
	svc = svc.withDefaults()
	pulled = rt.ImageExists(svc.Image) != nil
	id, err = rt.Start(svc)
	return id, pulled, err
}

var defaultExec = &osExecutor{}

// DetectRuntime tries docker first, falls back to podman. Returns an error
// if neither runtime is available.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(defaultExec)
}

func detectRuntime(exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available() {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available() {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}

// WaitReady polls endpoint until the service answers a spot request without
// a server error, or ctx is done. Model loading can take minutes.
func WaitReady(ctx context.Context, client *http.Client, endpoint string, interval time.Duration) error {
	probe := strings.TrimSuffix(endpoint, "/") + "/spot"
	form := url.Values{"text": {"Berlin"}}.Encode()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, probe, strings.NewReader(form))
		if err != nil {
			return fmt.Errorf("creating probe request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < http.StatusInternalServerError {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", endpoint, ctx.Err())
		case <-ticker.C:
		}
	}
}
