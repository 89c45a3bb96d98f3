package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/der2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

// MasterClient issues requests to the master actor from outside the actor
// system.
type MasterClient struct {
	root    *actor.RootContext
	master  *actor.PID
	timeout time.Duration
}

func NewMasterClient(root *actor.RootContext, master *actor.PID, timeout time.Duration) *MasterClient {
	return &MasterClient{root: root, master: master, timeout: timeout}
}

func (c *MasterClient) Health() (domain.ActorHealthResponse, error) {
	return request[domain.ActorHealthResponse](c, domain.ActorHealthRequest{})
}

// Property reads one named property. Reading an energy value refreshes the
// publish deviation baseline.
func (c *MasterClient) Property(name string) (uint32, error) {
	resp, err := request[domain.GetPropertyResponse](c, domain.GetPropertyRequest{Name: name})
	if err != nil {
		return 0, err
	}
	return resp.Value, resp.GetResponseError()
}

func (c *MasterClient) Properties() (map[string]uint32, error) {
	resp, err := request[domain.GetPropertiesResponse](c, domain.GetPropertiesRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Properties, resp.GetResponseError()
}

func (c *MasterClient) SetImportSetpoint(watts float64) (domain.SetSetpointResponse, error) {
	return request[domain.SetSetpointResponse](c, domain.SetImportSetpointRequest{Watts: watts})
}

func (c *MasterClient) SetExportSetpoint(watts float64) (domain.SetSetpointResponse, error) {
	return request[domain.SetSetpointResponse](c, domain.SetExportSetpointRequest{Watts: watts})
}

func (c *MasterClient) WaterHeaterEvent(cmd domain.DeviceCommand) error {
	resp, err := request[domain.WaterHeaterEventResponse](c, domain.WaterHeaterEventRequest{Command: cmd})
	if err != nil {
		return err
	}
	return resp.GetResponseError()
}

func request[T any](c *MasterClient, msg any) (T, error) {
	var zero T
	res, err := c.root.RequestFuture(c.master, msg, c.timeout).Result()
	if err != nil {
		return zero, err
	}
	resp, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected response %T", res)
	}
	return resp, nil
}

// Commander forwards setpoints to the master actor without waiting for the
// reply. It serves collaborators that have no use for the result.
type Commander struct {
	root   *actor.RootContext
	master *actor.PID
}

func NewCommander(root *actor.RootContext, master *actor.PID) Commander {
	return Commander{root: root, master: master}
}

func (c Commander) SetImportSetpoint(watts float64) {
	c.root.Send(c.master, domain.SetImportSetpointRequest{Watts: watts})
}

func (c Commander) SetExportSetpoint(watts float64) {
	c.root.Send(c.master, domain.SetExportSetpointRequest{Watts: watts})
}
