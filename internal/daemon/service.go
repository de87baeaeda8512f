package daemon

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/adrg/xdg"

	"github.com/manav03panchal/revise/internal/config"
	"github.com/manav03panchal/revise/internal/logging"
)

const (
	launchdLabel = "com." + config.AppName + ".daemon"
	systemdUnit  = config.AppName + ".service"
)

// ServiceManager installs the daemon as a per-user system service.
type ServiceManager struct {
	executablePath string
	paths          Paths
}

// NewServiceManager creates a service manager for the running binary.
func NewServiceManager(paths Paths) (*ServiceManager, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	return &ServiceManager{executablePath: execPath, paths: paths}, nil
}

// Install installs and starts the service.
func (m *ServiceManager) Install() error {
	switch runtime.GOOS {
	case "darwin":
		return m.installLaunchd()
	case "linux":
		return m.installSystemd()
	default:
		return fmt.Errorf("service installation is not supported on %s", runtime.GOOS)
	}
}

// Uninstall stops and removes the service.
func (m *ServiceManager) Uninstall() error {
	switch runtime.GOOS {
	case "darwin":
		return m.uninstallLaunchd()
	case "linux":
		return m.uninstallSystemd()
	default:
		return fmt.Errorf("service installation is not supported on %s", runtime.GOOS)
	}
}

// IsInstalled checks if the service file exists.
func (m *ServiceManager) IsInstalled() bool {
	path := m.ServicePath()
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// ServicePath returns the service file location for this platform, or ""
// if unsupported.
func (m *ServiceManager) ServicePath() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(xdg.Home, "Library", "LaunchAgents", launchdLabel+".plist")
	case "linux":
		return filepath.Join(xdg.ConfigHome, "systemd", "user", systemdUnit)
	default:
		return ""
	}
}

type serviceData struct {
	Label          string
	ExecutablePath string
	LogPath        string
	WorkDir        string
	Home           string
	DataHome       string
	StateHome      string
	ConfigHome     string
}

func (m *ServiceManager) data() serviceData {
	return serviceData{
		Label:          launchdLabel,
		ExecutablePath: m.executablePath,
		LogPath:        m.paths.Log(),
		WorkDir:        filepath.Dir(m.executablePath),
		Home:           xdg.Home,
		DataHome:       xdg.DataHome,
		StateHome:      xdg.StateHome,
		ConfigHome:     xdg.ConfigHome,
	}
}

var launchdTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>daemon</string>
        <string>start</string>
        <string>--foreground</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>
    <key>StandardErrorPath</key>
    <string>{{.LogPath}}</string>
    <key>WorkingDirectory</key>
    <string>{{.WorkDir}}</string>
</dict>
</plist>
`))

var systemdTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=revise revision reminders
After=network-online.target

[Service]
Type=simple
ExecStart={{.ExecutablePath}} daemon start --foreground
Restart=on-failure
RestartSec=5
StandardOutput=append:{{.LogPath}}
StandardError=append:{{.LogPath}}
Environment="HOME={{.Home}}"
Environment="XDG_DATA_HOME={{.DataHome}}"
Environment="XDG_STATE_HOME={{.StateHome}}"
Environment="XDG_CONFIG_HOME={{.ConfigHome}}"

[Install]
WantedBy=default.target
`))

// RenderLaunchd renders the launchd property list.
func (m *ServiceManager) RenderLaunchd() (string, error) {
	return render(launchdTemplate, m.data())
}

// RenderSystemd renders the systemd user unit.
func (m *ServiceManager) RenderSystemd() (string, error) {
	return render(systemdTemplate, m.data())
}

func render(t *template.Template, data serviceData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func writeServiceFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func run(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w: %s", name, args, err, bytes.TrimSpace(out))
	}
	return nil
}

func (m *ServiceManager) installLaunchd() error {
	content, err := m.RenderLaunchd()
	if err != nil {
		return err
	}
	path := m.ServicePath()
	if err := writeServiceFile(path, content); err != nil {
		return err
	}
	if err := run("launchctl", "load", path); err != nil {
		return err
	}
	logging.DebugLog("installed launchd service", "path", path)
	return nil
}

func (m *ServiceManager) uninstallLaunchd() error {
	path := m.ServicePath()
	_ = run("launchctl", "unload", path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plist file: %w", err)
	}
	logging.DebugLog("uninstalled launchd service", "path", path)
	return nil
}

func (m *ServiceManager) installSystemd() error {
	content, err := m.RenderSystemd()
	if err != nil {
		return err
	}
	path := m.ServicePath()
	if err := writeServiceFile(path, content); err != nil {
		return err
	}
	if err := run("systemctl", "--user", "daemon-reload"); err != nil {
		return err
	}
	if err := run("systemctl", "--user", "enable", "--now", systemdUnit); err != nil {
		return err
	}
	logging.DebugLog("installed systemd user service", "path", path)
	return nil
}

func (m *ServiceManager) uninstallSystemd() error {
	path := m.ServicePath()
	_ = run("systemctl", "--user", "disable", "--now", systemdUnit)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}
	_ = run("systemctl", "--user", "daemon-reload")
	logging.DebugLog("uninstalled systemd user service", "path", path)
	return nil
}
