package source

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/berfenger/kwb2mqtt/internal/config"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func heaterConfig(protocol string) config.HeaterConfig {
	return config.HeaterConfig{
		UniqueId:      "kwb_test",
		Protocol:      protocol,
		Host:          "127.0.0.1",
		Port:          kwb.DefaultTCPPort,
		SerialDevice:  "/dev/ttyKWB0",
		BaudRate:      19200,
		TimeoutMillis: 1000,
		SignalSource:  kwb.DefaultSignalSource,
		MessageIds:    kwb.DefaultMessageIDs,
	}
}

func TestNewMessageSourceByProtocol(t *testing.T) {

	assert := assert.New(t)

	groups, err := kwb.LoadSignalMaps(kwb.DefaultSignalSource)
	require.NoError(t, err)

	src, err := NewMessageSource(heaterConfig(config.PROTOCOL_TCP), groups, zap.NewNop())
	assert.NoError(err)
	assert.IsType(&kwb.StreamSource{}, src)

	src, err = NewMessageSource(heaterConfig(config.PROTOCOL_SERIAL), groups, zap.NewNop())
	assert.NoError(err)
	assert.IsType(&kwb.StreamSource{}, src)

	cfg := heaterConfig(config.PROTOCOL_MODBUS)
	cfg.Port = kwb.DefaultModbusPort
	src, err = NewMessageSource(cfg, groups, zap.NewNop())
	assert.NoError(err)
	assert.IsType(&kwb.ModbusMessageSource{}, src)

	_, err = NewMessageSource(heaterConfig("carrier-pigeon"), groups, zap.NewNop())
	assert.ErrorContains(err, "unsupported protocol")
}

func TestNewApplianceScrapesOverTCP(t *testing.T) {

	require := require.New(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	t.Cleanup(func() { l.Close() })
	_, portStr, _ := net.SplitHostPort(l.Addr().String())
	port, _ := strconv.ParseUint(portStr, 10, 16)

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, err := conn.Write(kwb.SampleStream()); err != nil {
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}()

	cfg := heaterConfig(config.PROTOCOL_TCP)
	cfg.Port = uint(port)
	appliance, err := NewAppliance(cfg, zap.NewNop())
	require.NoError(err)

	require.True(appliance.Scrape(), "scrape error: %v", appliance.LastError())
	output, ok := appliance.Snapshot().Number("boiler_output")
	require.True(ok)
	require.Equal(75.0, output)
}

func TestNewApplianceUnknownSource(t *testing.T) {
	cfg := heaterConfig(config.PROTOCOL_TCP)
	cfg.SignalSource = 999
	_, err := NewAppliance(cfg, zap.NewNop())
	assert.ErrorIs(t, err, kwb.ErrUnknownSource)
}
