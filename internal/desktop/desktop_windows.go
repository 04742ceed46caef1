//go:build windows

package desktop

import (
	"fmt"
	"path/filepath"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const keyEventKeyUp = 0x0002

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procKeybdEvent       = user32.NewProc("keybd_event")
	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procGetTickCount     = kernel32.NewProc("GetTickCount")
)

// lastInputInfo mirrors LASTINPUTINFO.
type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

// New returns the Win32 bindings.
func New() *Desktop {
	return &Desktop{
		Clipboard:  SystemClipboard{},
		Keyboard:   win32Keyboard{},
		Foreground: win32Foreground{},
		Idle:       win32Idle{},
		Supported:  true,
	}
}

type win32Keyboard struct{}

func (win32Keyboard) KeyDown(k Key) error {
	return keybdEvent(k, 0)
}

func (win32Keyboard) KeyUp(k Key) error {
	return keybdEvent(k, keyEventKeyUp)
}

func keybdEvent(k Key, flags uint32) error {
	if err := procKeybdEvent.Find(); err != nil {
		return fmt.Errorf("keybd_event unavailable: %w", err)
	}
	// keybd_event returns nothing; the call itself cannot fail once resolved.
	procKeybdEvent.Call(uintptr(k), 0, uintptr(flags), 0)
	return nil
}

type win32Foreground struct{}

func (win32Foreground) ProcessName() (string, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return "", fmt.Errorf("no foreground window")
	}

	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil {
		return "", fmt.Errorf("window process id: %w", err)
	}

	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(handle)

	buf := make([]uint16, windows.MAX_LONG_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("process image name: %w", err)
	}
	return filepath.Base(windows.UTF16ToString(buf[:size])), nil
}

type win32Idle struct{}

func (win32Idle) IdleTime() (time.Duration, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ok, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ok == 0 {
		return 0, fmt.Errorf("GetLastInputInfo: %w", err)
	}
	now, _, _ := procGetTickCount.Call()
	// Both values are 32-bit tick counts; unsigned subtraction handles wraparound.
	elapsed := uint32(now) - info.dwTime
	return time.Duration(elapsed) * time.Millisecond, nil
}
