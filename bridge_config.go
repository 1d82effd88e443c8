package continuitybridge

import (
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/routing"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/adapters/transform"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/core"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

type Config = domain.Config

type QueueConfig = domain.QueueConfig

type StorageConfig = domain.StorageConfig

type MetricsConfig = domain.MetricsConfig

func DefaultConfig() *Config {
	return domain.DefaultConfig()
}

// Input is the pipeline's tagged input union; build one with FlowInput,
// XMLInput or CanonicalInput.
type Input = core.Input

var (
	FlowInput      = core.FlowInput
	XMLInput       = core.XMLInput
	CanonicalInput = core.CanonicalInput
)

type IngestEnvelope = core.IngestEnvelope

type StaticFlowResolver = core.StaticFlowResolver

func NewStaticFlowResolver() *StaticFlowResolver {
	return core.NewStaticFlowResolver()
}

// Host-supplied configuration for the origin decider and the canonical
// transformer.

type RoutingRule = routing.Rule

type MappingConfig = transform.Config

type FieldMapping = transform.FieldMapping

// Re-exported contracts implemented or consumed by the host application.

type NodeExecutor = ports.NodeExecutor

type ConsumeOptions = ports.ConsumeOptions

type NodeResult = ports.NodeResult

type ExecutionContext = ports.ExecutionContext

type Receiver = ports.Receiver

type FlowResolver = ports.FlowResolver

type Delivery = ports.Delivery

type QueueProvider = ports.QueueProvider

// Re-exported domain value types.

type FlowDefinition = domain.FlowDefinition

type Node = domain.Node

type Edge = domain.Edge

type FlowRun = domain.FlowRun

type NodeExecution = domain.NodeExecution

type CanonicalItem = domain.CanonicalItem

type RoutingDecision = domain.RoutingDecision

type Warehouse = domain.Warehouse

type DispatchResult = domain.DispatchResult

type PipelineResult = domain.PipelineResult

type MetricsSnapshot = domain.MetricsSnapshot

// Single wraps the common one-output executor result.
var Single = ports.Single
