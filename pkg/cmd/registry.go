// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"

	browserpool "github.com/flowkite/flowkite/pkg/browser"
	"github.com/flowkite/flowkite/pkg/registry"
	"github.com/flowkite/flowkite/pkg/steps/browser"
	"github.com/flowkite/flowkite/pkg/steps/control"
	"github.com/flowkite/flowkite/pkg/steps/file"
	"github.com/flowkite/flowkite/pkg/steps/integration"
	"github.com/flowkite/flowkite/pkg/steps/variable"
)

func registerBrowserSteps(reg *registry.Registry, pool *browserpool.Pool) {
	reg.RegisterStep(browser.NewNavigateFactory(pool))
	reg.RegisterStep(browser.NewClickFactory(pool))
	reg.RegisterStep(browser.NewTypeFactory(pool))
	reg.RegisterStep(browser.NewScrollFactory(pool))
	reg.RegisterStep(browser.NewWaitForElementFactory(pool))
	reg.RegisterStep(browser.NewExtractTextFactory(pool))
	reg.RegisterStep(browser.NewExtractAttributeFactory(pool))
	reg.RegisterStep(browser.NewScreenshotFactory(pool))
	reg.RegisterStep(browser.NewGeneratePDFFactory(pool))
	reg.RegisterStep(browser.NewExecuteScriptFactory(pool))
}

func registerControlSteps(reg *registry.Registry) {
	reg.RegisterStep(control.NewConditionFactory())
	reg.RegisterStep(control.NewLoopFactory())
	reg.RegisterStep(control.NewBreakFactory())
	reg.RegisterStep(control.NewContinueFactory())
}

func registerIntegrationSteps(reg *registry.Registry) {
	reg.RegisterStep(integration.NewHTTPRequestFactory())
	reg.RegisterStep(integration.NewWebhookFactory())
	reg.RegisterStep(integration.NewSendEmailFactory())
}

func registerFileSteps(reg *registry.Registry) {
	reg.RegisterStep(file.NewReadFileFactory())
	reg.RegisterStep(file.NewWriteFileFactory())
	reg.RegisterStep(file.NewDownloadFileFactory())
}

func registerVariableSteps(reg *registry.Registry) {
	reg.RegisterStep(variable.NewSetVariableFactory())
	reg.RegisterStep(variable.NewTransformDataFactory())
}

// NewRegistry builds the registry with every native step type registered.
func NewRegistry(logger *slog.Logger, pool *browserpool.Pool) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerBrowserSteps(reg, pool)
	registerControlSteps(reg)
	registerIntegrationSteps(reg)
	registerFileSteps(reg)
	registerVariableSteps(reg)

	return reg
}
