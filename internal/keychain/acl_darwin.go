//go:build darwin

package keychain

/*
#cgo CFLAGS: -Wno-deprecated-declarations
#cgo LDFLAGS: -framework CoreFoundation -framework Security
#include <stdlib.h>
#include <CoreFoundation/CoreFoundation.h>
#include <Security/Security.h>
*/
import "C"

import (
	"bytes"
	"fmt"
	"unsafe"
)

// legacyKeychain holds the SecKeychainRef the access control calls need.
// Item access lists are only reachable through SecKeychainItemRef, which the
// SecItem query API does not hand out. A zero ref means the default search
// list.
type legacyKeychain struct {
	ref C.SecKeychainRef
}

func openLegacy(path string) (*legacyKeychain, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	var ref C.SecKeychainRef
	if st := C.SecKeychainOpen(cpath, &ref); st != C.errSecSuccess {
		return nil, statusError("SecKeychainOpen", st)
	}
	return &legacyKeychain{ref: ref}, nil
}

func (l *legacyKeychain) release() {
	if l == nil || l.ref == 0 {
		return
	}
	C.CFRelease(C.CFTypeRef(l.ref))
	l.ref = 0
}

func (l *legacyKeychain) findItem(service, account string) (C.SecKeychainItemRef, error) {
	csvc := C.CString(service)
	defer C.free(unsafe.Pointer(csvc))
	cacct := C.CString(account)
	defer C.free(unsafe.Pointer(cacct))

	var ref C.SecKeychainItemRef
	st := C.SecKeychainFindGenericPassword(
		C.CFTypeRef(l.ref),
		C.UInt32(len(service)), csvc,
		C.UInt32(len(account)), cacct,
		nil, nil,
		&ref,
	)
	if st == C.errSecItemNotFound {
		return 0, fmt.Errorf("%w: %s/%s", ErrNotFound, service, account)
	}
	if st != C.errSecSuccess {
		return 0, statusError("SecKeychainFindGenericPassword", st)
	}
	return ref, nil
}

// copyACLs returns the item ref, its access object and the ACL list. The
// caller releases all three with the returned func.
func (l *legacyKeychain) copyACLs(item Item) (C.SecKeychainItemRef, C.SecAccessRef, []C.CFTypeRef, func(), error) {
	ref, err := l.findItem(item.Service, item.Account)
	if err != nil {
		return 0, 0, nil, nil, err
	}

	var access C.SecAccessRef
	if st := C.SecKeychainItemCopyAccess(ref, &access); st != C.errSecSuccess {
		C.CFRelease(C.CFTypeRef(ref))
		return 0, 0, nil, nil, statusError("SecKeychainItemCopyAccess", st)
	}

	var list C.CFArrayRef
	if st := C.SecAccessCopyACLList(access, &list); st != C.errSecSuccess {
		C.CFRelease(C.CFTypeRef(access))
		C.CFRelease(C.CFTypeRef(ref))
		return 0, 0, nil, nil, statusError("SecAccessCopyACLList", st)
	}

	release := func() {
		C.CFRelease(C.CFTypeRef(list))
		C.CFRelease(C.CFTypeRef(access))
		C.CFRelease(C.CFTypeRef(ref))
	}
	return ref, access, arrayValues(list), release, nil
}

func (s *SystemService) CopyAccess(item Item) (*Access, error) {
	_, _, acls, release, err := s.legacy.copyACLs(item)
	if err != nil {
		return nil, err
	}
	defer release()

	access := &Access{Rules: make([]*Rule, 0, len(acls))}
	for i, v := range acls {
		acl := C.SecACLRef(v)

		var apps C.CFArrayRef
		var desc C.CFStringRef
		var prompt C.SecKeychainPromptSelector
		if st := C.SecACLCopyContents(acl, &apps, &desc, &prompt); st != C.errSecSuccess {
			return nil, statusError("SecACLCopyContents", st)
		}

		rule := &Rule{
			Authorizations: authorizations(acl),
			Description:    goString(desc),
			Prompt:         PromptSelector(prompt),
			index:          i,
		}
		if apps != 0 {
			rule.TrustedApps = trustedAppPaths(apps)
			C.CFRelease(C.CFTypeRef(apps))
		}
		if desc != 0 {
			C.CFRelease(C.CFTypeRef(desc))
		}
		access.Rules = append(access.Rules, rule)
	}
	return access, nil
}

func (s *SystemService) SetAccess(item Item, access *Access) error {
	ref, acc, acls, release, err := s.legacy.copyACLs(item)
	if err != nil {
		return err
	}
	defer release()

	for _, r := range access.Rules {
		if !r.modified {
			continue
		}
		if r.index < 0 || r.index >= len(acls) {
			return fmt.Errorf("access rule %d of %s no longer exists", r.index, item)
		}
		if err := setContents(C.SecACLRef(acls[r.index]), r); err != nil {
			return err
		}
	}

	if st := C.SecKeychainItemSetAccess(ref, acc); st != C.errSecSuccess {
		return statusError("SecKeychainItemSetAccess", st)
	}
	return nil
}

// setContents rewrites one ACL, keeping its existing description.
func setContents(acl C.SecACLRef, r *Rule) error {
	var oldApps C.CFArrayRef
	var desc C.CFStringRef
	var prompt C.SecKeychainPromptSelector
	if st := C.SecACLCopyContents(acl, &oldApps, &desc, &prompt); st != C.errSecSuccess {
		return statusError("SecACLCopyContents", st)
	}
	if oldApps != 0 {
		C.CFRelease(C.CFTypeRef(oldApps))
	}
	if desc != 0 {
		defer C.CFRelease(C.CFTypeRef(desc))
	}

	apps, err := trustedAppArray(r.TrustedApps)
	if err != nil {
		return err
	}
	if apps != 0 {
		defer C.CFRelease(C.CFTypeRef(apps))
	}

	if st := C.SecACLSetContents(acl, apps, desc, C.SecKeychainPromptSelector(r.Prompt)); st != C.errSecSuccess {
		return statusError("SecACLSetContents", st)
	}
	return nil
}

func authorizations(acl C.SecACLRef) []Authorization {
	list := C.SecACLCopyAuthorizations(acl)
	if list == 0 {
		return nil
	}
	defer C.CFRelease(C.CFTypeRef(list))

	values := arrayValues(list)
	out := make([]Authorization, 0, len(values))
	for _, v := range values {
		out = append(out, Authorization(goString(C.CFStringRef(v))))
	}
	return out
}

func trustedAppPaths(apps C.CFArrayRef) []string {
	values := arrayValues(apps)
	out := make([]string, 0, len(values))
	for _, v := range values {
		var data C.CFDataRef
		if st := C.SecTrustedApplicationCopyData(C.SecTrustedApplicationRef(v), &data); st != C.errSecSuccess {
			continue
		}
		n := C.CFDataGetLength(data)
		b := C.GoBytes(unsafe.Pointer(C.CFDataGetBytePtr(data)), C.int(n))
		C.CFRelease(C.CFTypeRef(data))
		out = append(out, string(bytes.TrimRight(b, "\x00")))
	}
	return out
}

// trustedAppArray builds the CFArray of SecTrustedApplicationRef for paths.
// nil paths yields a NULL array (any application); an empty slice yields an
// empty array (no application).
func trustedAppArray(paths []string) (C.CFArrayRef, error) {
	if paths == nil {
		return 0, nil
	}

	apps := make([]C.CFTypeRef, 0, len(paths))
	defer func() {
		for _, a := range apps {
			C.CFRelease(a)
		}
	}()

	for _, p := range paths {
		cpath := C.CString(p)
		var app C.SecTrustedApplicationRef
		st := C.SecTrustedApplicationCreateFromPath(cpath, &app)
		C.free(unsafe.Pointer(cpath))
		if st != C.errSecSuccess {
			return 0, statusError("SecTrustedApplicationCreateFromPath "+p, st)
		}
		apps = append(apps, C.CFTypeRef(app))
	}

	var values *unsafe.Pointer
	if len(apps) > 0 {
		values = (*unsafe.Pointer)(unsafe.Pointer(&apps[0]))
	}
	arr := C.CFArrayCreate(C.kCFAllocatorDefault, values, C.CFIndex(len(apps)), &C.kCFTypeArrayCallBacks)
	if arr == 0 {
		return 0, fmt.Errorf("allocating trusted application list")
	}
	return arr, nil
}

func arrayValues(arr C.CFArrayRef) []C.CFTypeRef {
	n := C.CFArrayGetCount(arr)
	if n <= 0 {
		return nil
	}
	values := make([]C.CFTypeRef, n)
	C.CFArrayGetValues(arr, C.CFRange{location: 0, length: n}, (*unsafe.Pointer)(unsafe.Pointer(&values[0])))
	return values
}

func goString(s C.CFStringRef) string {
	if s == 0 {
		return ""
	}
	if p := C.CFStringGetCStringPtr(s, C.kCFStringEncodingUTF8); p != nil {
		return C.GoString(p)
	}
	length := C.CFStringGetLength(s)
	if length == 0 {
		return ""
	}
	maxLen := C.CFStringGetMaximumSizeForEncoding(length, C.kCFStringEncodingUTF8)
	buf := make([]byte, maxLen)
	var used C.CFIndex
	C.CFStringGetBytes(s, C.CFRange{location: 0, length: length}, C.kCFStringEncodingUTF8, 0, 0,
		(*C.UInt8)(unsafe.Pointer(&buf[0])), maxLen, &used)
	return string(buf[:used])
}

func statusError(op string, st C.OSStatus) error {
	e := &StatusError{Op: op, Status: int32(st)}
	if msg := C.SecCopyErrorMessageString(st, nil); msg != 0 {
		e.Message = goString(msg)
		C.CFRelease(C.CFTypeRef(msg))
	}
	return e
}
