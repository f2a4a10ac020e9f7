package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProfile() *DeviceProfile {
	return &DeviceProfile{
		Name:   "sample",
		Labels: map[string]string{"env": "test"},
		DeviceResources: []DeviceResource{
			{Name: "temperature", Properties: ResourceProperties{Value: PropertyDescriptor{Type: Float32, ReadWrite: ReadOnly}}},
			{Name: "setpoint", Properties: ResourceProperties{Value: PropertyDescriptor{Type: Float32, ReadWrite: ReadWriteMode}}},
		},
		Resources: []ProfileResource{
			{
				Name: "temperature",
				Get:  []ResourceOperation{{Index: 0, Object: "temperature"}},
			},
			{
				Name: "setpoint",
				Get:  []ResourceOperation{{Index: 0, Object: "setpoint"}},
				Set:  []ResourceOperation{{Index: 0, Object: "setpoint"}},
			},
		},
	}
}

func TestReadWriteMode(t *testing.T) {
	assert.True(t, ReadOnly.CanRead())
	assert.False(t, ReadOnly.CanWrite())
	assert.False(t, WriteOnly.CanRead())
	assert.True(t, WriteOnly.CanWrite())
	assert.True(t, ReadWriteMode.CanRead())
	assert.True(t, ReadWriteMode.CanWrite())
}

func TestProfileResourceLookup(t *testing.T) {
	p := sampleProfile()

	res, ok := p.Resource("setpoint")
	require.True(t, ok)
	assert.Equal(t, "setpoint", res.Name)

	_, ok = p.Resource("missing")
	assert.False(t, ok)

	dr, ok := p.DeviceResourceByName("temperature")
	require.True(t, ok)
	assert.Equal(t, Float32, dr.Properties.Value.Type)
}

func TestProfileCloneIsIndependent(t *testing.T) {
	p := sampleProfile()
	clone := p.Clone()

	clone.Labels["env"] = "prod"
	clone.DeviceResources[0].Name = "mutated"
	clone.Resources[0].Get[0].Object = "mutated"

	assert.Equal(t, "test", p.Labels["env"])
	assert.Equal(t, "temperature", p.DeviceResources[0].Name)
	assert.Equal(t, "temperature", p.Resources[0].Get[0].Object)
}

func TestDeviceIsCommandable(t *testing.T) {
	d := &Device{AdminState: Unlocked, OpState: Enabled}
	assert.True(t, d.IsCommandable())

	d.AdminState = Locked
	assert.False(t, d.IsCommandable())

	d.AdminState = Unlocked
	d.OpState = Disabled
	assert.False(t, d.IsCommandable())
}
