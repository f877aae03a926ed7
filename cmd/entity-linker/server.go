// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/entity-linker/internal/container"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run a local DBpedia Spotlight service in a container",
	Long: `Server starts and stops a DBpedia Spotlight container with Docker or
Podman. Point annotate at it with --endpoint (printed on start).`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a local Spotlight container",
	RunE:  runServerStart,
}

var serverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a local Spotlight container",
	RunE:  runServerStop,
}

func init() {
	serverCmd.PersistentFlags().String("language", "en", "model language")
	serverCmd.PersistentFlags().String("name", "", "container name (default spotlight-{language})")

	serverStartCmd.Flags().String("image", container.DefaultImage, "container image")
	serverStartCmd.Flags().Int("port", 2222, "host port for the service")
	serverStartCmd.Flags().Bool("wait", false, "wait until the service answers requests")
	serverStartCmd.Flags().Duration("wait-timeout", 10*time.Minute, "how long --wait waits for the model to load")

	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverStopCmd)
	rootCmd.AddCommand(serverCmd)
}

func serviceFromFlags(cmd *cobra.Command) container.Service {
	language, _ := cmd.Flags().GetString("language")
	name, _ := cmd.Flags().GetString("name")
	image, _ := cmd.Flags().GetString("image")
	port, _ := cmd.Flags().GetInt("port")
	return container.Service{Name: name, Image: image, Language: language, Port: port}
}

func runServerStart(cmd *cobra.Command, args []string) error {
	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}
	svc := serviceFromFlags(cmd)

	id, pulled, err := container.Up(rt, svc)
	if err != nil {
		return err
	}
	if pulled {
		fmt.Printf("image %s was not present locally and has been pulled\n", svc.Image)
	}
	fmt.Printf("started %s container %s\n", rt.Name(), id)
	fmt.Printf("endpoint: %s\n", svc.Endpoint())

	wait, _ := cmd.Flags().GetBool("wait")
	if !wait {
		return nil
	}
	timeout, _ := cmd.Flags().GetDuration("wait-timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	fmt.Println("waiting for the service to load its model...")
	if err := container.WaitReady(ctx, &http.Client{Timeout: 30 * time.Second}, svc.Endpoint(), 5*time.Second); err != nil {
		return err
	}
	fmt.Println("service ready")
	return nil
}

func runServerStop(cmd *cobra.Command, args []string) error {
	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		language, _ := cmd.Flags().GetString("language")
		name = "spotlight-" + language
	}
	if err := rt.Stop(name); err != nil {
		return err
	}
	fmt.Printf("stopped %s\n", name)
	return nil
}
